package hardware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/relay"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
)

type ServiceAPI interface {
	ListAssets(ctx context.Context, id internal.Identity, params url.Values) (*relay.AssetListing, error)
	GetAsset(ctx context.Context, id internal.Identity, assetID int64) (any, error)
	UpdateAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error)
	CheckoutAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error)
	CheckinAsset(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// ListAssets handles GET /hardware and returns the merged row array.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	listing, err := h.Service.ListAssets(r.Context(), id, r.URL.Query())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, listing.Rows)
}

// GetAsset handles GET /hardware/{id}
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	assetID, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := h.Service.GetAsset(r.Context(), id, assetID)
	h.Respond(w, r, http.StatusOK, payload, err)
}

// UpdateAsset handles PATCH /hardware/{id}
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.UpdateAsset)
}

// Checkout handles POST /hardware/{id}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.CheckoutAsset)
}

// Checkin handles POST /hardware/{id}/checkin
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Service.CheckinAsset)
}

type mutation func(ctx context.Context, id internal.Identity, assetID int64, body map[string]any) (any, error)

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op mutation) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	assetID, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	body, err := h.DecodeObject(w, r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := op(r.Context(), id, assetID, body)
	h.Respond(w, r, http.StatusOK, payload, err)
}
