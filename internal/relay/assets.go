package relay

import (
	"context"
	"fmt"
	"net/url"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

// AssetListing is the result of the two-pass branch asset listing.
type AssetListing struct {
	// Payload is the primary envelope with rows replaced by the merged set.
	Payload any
	Rows    []normalize.Row
	// LocationName is empty when the name lookup failed or returned none,
	// in which case the search pass was skipped.
	LocationName string
	PrimaryRows  int
	SearchRows   int
}

// ListAssets lists the branch's hardware in two passes: by location id,
// then by a free-text search for the location's name to catch assets whose
// location was recorded as text. The name is looked up first; results are
// merged first-seen-wins by id.
func (s *Service) ListAssets(ctx context.Context, id internal.Identity, params url.Values) (*AssetListing, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}

	listing := &AssetListing{LocationName: s.resolveLocationName(ctx, c, id)}

	primary, rows, err := s.fetchBranchAssets(ctx, c, id, params)
	if err != nil {
		return nil, err
	}
	listing.PrimaryRows = len(rows)

	if listing.LocationName != "" {
		found, err := s.searchAssets(ctx, c, listing.LocationName, params)
		if err != nil {
			return nil, err
		}
		listing.SearchRows = len(found)
		rows = append(rows, found...)
	}

	listing.Rows = normalize.DedupeByID(rows)
	listing.Payload = normalize.MergeRows(primary, listing.Rows)

	s.log(ctx).Debug("branch assets listed",
		"location_id", id.LocationID,
		"primary_rows", listing.PrimaryRows,
		"search_rows", listing.SearchRows,
		"merged_rows", len(listing.Rows))
	return listing, nil
}

// fetchBranchAssets is the primary pass with the branch location forced.
func (s *Service) fetchBranchAssets(ctx context.Context, c Caller, id internal.Identity, params url.Values) (any, []normalize.Row, error) {
	q := cloneParams(params)
	q.Set("location_id", locationParam(id))

	payload, err := c.Get(ctx, "/hardware", q)
	if err != nil {
		return nil, nil, err
	}
	return payload, s.rows(ctx, "/hardware", payload), nil
}

// resolveLocationName never fails the listing; a failed lookup only skips
// the search pass.
func (s *Service) resolveLocationName(ctx context.Context, c Caller, id internal.Identity) string {
	payload, err := c.Get(ctx, fmt.Sprintf("/locations/%d", id.LocationID), nil)
	if err != nil {
		s.log(ctx).Warn("location name lookup failed, skipping search pass",
			"location_id", id.LocationID, "error", err)
		return ""
	}
	name, ok := normalize.LocationName(payload)
	if !ok {
		s.log(ctx).Warn("location has no name, skipping search pass", "location_id", id.LocationID)
		return ""
	}
	return name
}

// searchAssets is the secondary pass. The caller's own sort and order win.
func (s *Service) searchAssets(ctx context.Context, c Caller, name string, params url.Values) ([]normalize.Row, error) {
	q := cloneParams(params)
	q.Del("location_id")
	q.Set("search", name)
	if _, ok := q["sort"]; !ok {
		q.Set("sort", "name")
	}
	if _, ok := q["order"]; !ok {
		q.Set("order", "asc")
	}

	payload, err := c.Get(ctx, "/hardware", q)
	if err != nil {
		return nil, err
	}
	return s.rows(ctx, "/hardware?search", payload), nil
}

// rows decodes a list envelope, logging shapes it does not recognise.
func (s *Service) rows(ctx context.Context, source string, payload any) []normalize.Row {
	env, err := normalize.DecodeEnvelope(payload)
	if err != nil {
		s.log(ctx).Error("unexpected list payload from upstream", "source", source, "error", err)
		return nil
	}
	if env.Skipped > 0 {
		s.log(ctx).Warn("upstream list contained non-object rows", "source", source, "skipped", env.Skipped)
	}
	return env.Rows
}

func (s *Service) GetAsset(ctx context.Context, id internal.Identity, assetID int64) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	payload, err := c.Get(ctx, fmt.Sprintf("/hardware/%d", assetID), nil)
	if err != nil {
		return nil, err
	}
	if s.opts.EnforceLocationScope && !inBranch(payload, id.LocationID, "location", "rtd_location") {
		s.log(ctx).Warn("asset outside caller branch", "asset_id", assetID, "location_id", id.LocationID)
		return nil, internal.ErrOutOfBranchScope
	}
	return payload, nil
}

// UpdateAsset forwards a partial update, typically a status change.
func (s *Service) UpdateAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	payload, err := c.Patch(ctx, fmt.Sprintf("/hardware/%d", assetID), cloneBody(body))
	s.audit(ctx, events.EventTypeAssetUpdated, id, assetID, err)
	return payload, err
}

func (s *Service) CheckoutAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	payload, err := c.Post(ctx, fmt.Sprintf("/hardware/%d/checkout", assetID), withLocationDefaults(body, id))
	s.audit(ctx, events.EventTypeAssetCheckedOut, id, assetID, err)
	return payload, err
}

func (s *Service) CheckinAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	payload, err := c.Post(ctx, fmt.Sprintf("/hardware/%d/checkin", assetID), withLocationDefaults(body, id))
	s.audit(ctx, events.EventTypeAssetCheckedIn, id, assetID, err)
	return payload, err
}

// withLocationDefaults fills location_id and assigned_location with the
// branch location when the caller left them absent or null.
func withLocationDefaults(body map[string]any, id internal.Identity) map[string]any {
	out := cloneBody(body)
	for _, key := range []string{"location_id", "assigned_location"} {
		if v, ok := out[key]; !ok || v == nil {
			out[key] = id.LocationID
		}
	}
	return out
}

// inBranch reports whether any of the record's location relations, or a
// bare location_id, points at locationID.
func inBranch(payload any, locationID int64, relations ...string) bool {
	record, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	want := fmt.Sprintf("%d", locationID)
	for _, rel := range relations {
		if obj, ok := record[rel].(map[string]any); ok && normalize.Text(obj["id"]) == want {
			return true
		}
	}
	return normalize.Text(record["location_id"]) == want
}
