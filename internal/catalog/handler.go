// Package catalog serves the reference lists the asset screens need:
// locations, companies and status labels.
package catalog

import (
	"context"
	"net/http"
	"net/url"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
)

type ServiceAPI interface {
	GetLocation(ctx context.Context, id internal.Identity) (any, error)
	ListLocations(ctx context.Context, id internal.Identity, params url.Values) (any, error)
	ListCompanies(ctx context.Context, id internal.Identity, params url.Values) ([]normalize.Row, error)
	ListStatusLabels(ctx context.Context, id internal.Identity, params url.Values) (any, error)
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

// GetLocation handles GET /locations/{id}. The id must be numeric but the
// caller's own branch location is always the one returned.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	if _, err := h.IDParam(r, "id"); err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := h.Service.GetLocation(r.Context(), id)
	h.Respond(w, r, http.StatusOK, payload, err)
}

func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	payload, err := h.Service.ListLocations(r.Context(), id, r.URL.Query())
	h.Respond(w, r, http.StatusOK, payload, err)
}

// ListCompanies returns the company rows, not the list envelope.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.ListCompanies(r.Context(), id, r.URL.Query())
	h.Respond(w, r, http.StatusOK, rows, err)
}

func (h *Handler) ListStatusLabels(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	payload, err := h.Service.ListStatusLabels(r.Context(), id, r.URL.Query())
	h.Respond(w, r, http.StatusOK, payload, err)
}
