package relay

import (
	"context"
	"fmt"
	"net/url"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

// GetLocation returns the caller's own branch location.
func (s *Service) GetLocation(ctx context.Context, id internal.Identity) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, fmt.Sprintf("/locations/%d", id.LocationID), nil)
}

func (s *Service) ListLocations(ctx context.Context, id internal.Identity, params url.Values) (any, error) {
	return s.passthrough(ctx, id, "/locations", params)
}

func (s *Service) ListStatusLabels(ctx context.Context, id internal.Identity, params url.Values) (any, error) {
	return s.passthrough(ctx, id, "/statuslabels", params)
}

// ListCompanies returns the company rows without the list envelope.
func (s *Service) ListCompanies(ctx context.Context, id internal.Identity, params url.Values) ([]normalize.Row, error) {
	payload, err := s.passthrough(ctx, id, "/companies", params)
	if err != nil {
		return nil, err
	}
	rows := s.rows(ctx, "/companies", payload)
	if rows == nil {
		rows = []normalize.Row{}
	}
	return rows, nil
}

func (s *Service) passthrough(ctx context.Context, id internal.Identity, path string, params url.Values) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, path, cloneParams(params))
}
