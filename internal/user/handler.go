package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
)

type ServiceAPI interface {
	ListUsers(ctx context.Context, id internal.Identity, params url.Values) (any, error)
	CreateUser(ctx context.Context, id internal.Identity, body map[string]any) (any, error)
	GetUser(ctx context.Context, id internal.Identity, userID int64) (any, error)
	GetUserAssets(ctx context.Context, id internal.Identity, userID int64, params url.Values) (any, error)
	FindUserByUsername(ctx context.Context, id internal.Identity, username string) (any, error)
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

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	payload, err := h.Service.ListUsers(r.Context(), id, r.URL.Query())
	h.Respond(w, r, http.StatusOK, payload, err)
}

// CreateUser handles POST /users; the user is filed under the caller's branch.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	body, err := h.DecodeObject(w, r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := h.Service.CreateUser(r.Context(), id, body)
	h.Respond(w, r, http.StatusCreated, payload, err)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	userID, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := h.Service.GetUser(r.Context(), id, userID)
	h.Respond(w, r, http.StatusOK, payload, err)
}

// GetUserAssets handles GET /users/{id}/hardware
func (h *Handler) GetUserAssets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	userID, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	payload, err := h.Service.GetUserAssets(r.Context(), id, userID, r.URL.Query())
	h.Respond(w, r, http.StatusOK, payload, err)
}

// FindUser handles GET /users/find?username=
func (h *Handler) FindUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.Identity(w, r)
	if !ok {
		return
	}
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		h.HandleError(w, r, internal.NewValidationError("username is required", internal.ErrCodeMissingParameter))
		return
	}
	payload, err := h.Service.FindUserByUsername(r.Context(), id, username)
	h.Respond(w, r, http.StatusOK, payload, err)
}
