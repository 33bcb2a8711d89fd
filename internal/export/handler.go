package export

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/relay"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
)

type Source interface {
	ListAssets(ctx context.Context, id internal.Identity, params url.Values) (*relay.AssetListing, error)
	ListUsers(ctx context.Context, id internal.Identity, params url.Values) (any, error)
}

type Handler struct {
	*transport.BaseHandler
	Source Source
	Now    func() time.Time
}

func NewHandler(base *transport.BaseHandler, source Source) *Handler {
	return &Handler{
		BaseHandler: base,
		Source:      source,
		Now:         time.Now,
	}
}

func (h *Handler) AssetsCSV(w http.ResponseWriter, r *http.Request) {
	h.exportAssets(w, r, FormatCSV)
}

func (h *Handler) AssetsXLSX(w http.ResponseWriter, r *http.Request) {
	h.exportAssets(w, r, FormatXLSX)
}

func (h *Handler) UsersCSV(w http.ResponseWriter, r *http.Request) {
	h.exportUsers(w, r, FormatCSV)
}

func (h *Handler) UsersXLSX(w http.ResponseWriter, r *http.Request) {
	h.exportUsers(w, r, FormatXLSX)
}

// exportAssets uses the same two-pass listing the asset list page shows.
func (h *Handler) exportAssets(w http.ResponseWriter, r *http.Request, format Format) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, internal.ErrMissingToken)
		return
	}
	listing, err := h.Source.ListAssets(r.Context(), id, nil)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.send(w, r, format, NewTable(normalize.AssetLayout, listing.Rows))
}

func (h *Handler) exportUsers(w http.ResponseWriter, r *http.Request, format Format) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, internal.ErrMissingToken)
		return
	}
	payload, err := h.Source.ListUsers(r.Context(), id, nil)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	env, err := normalize.DecodeEnvelope(payload)
	if err != nil {
		h.Log(r).Error("unexpected user list payload, exporting no rows", "error", err)
	}
	h.send(w, r, format, NewTable(normalize.UserLayout, env.Rows))
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, format Format, table Table) {
	content, err := Render(format, table)
	if err != nil {
		h.HandleError(w, r, internal.NewExportError(err))
		return
	}
	filename := Filename(table.Entity, format, h.Now())
	h.Log(r).Info("export generated", "file", filename, "rows", len(table.Records))
	h.WriteAttachment(w, format.ContentType(), filename, content)
}
