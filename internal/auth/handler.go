package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*Session, error)
}

// UserDirectory finds the operator's own record in the inventory system.
type UserDirectory interface {
	LookupUser(ctx context.Context, id internal.Identity, username string) (normalize.Row, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	Resolver  IdentityResolver
	Directory UserDirectory
	// TTL is the cookie lifetime; it matches the token lifetime.
	TTL    time.Duration
	Secure SecureMode
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, resolver IdentityResolver, directory UserDirectory, ttl time.Duration, secure SecureMode) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Resolver:    resolver,
		Directory:   directory,
		TTL:         ttl,
		Secure:      secure,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	raw, err := h.ReadBody(w, r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	dto, err := DecodeLogin(raw)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	SetSessionCookie(w, r, h.Secure, session.Token, h.TTL)
	h.WriteJSON(w, http.StatusOK, LoginResponse{
		Message:   "User is validated.",
		User:      session.Profile,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, r, h.Secure)
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// CurrentUser returns the session identity and the operator's upstream
// user record.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, internal.ErrMissingToken)
		return
	}

	user, err := h.Directory.LookupUser(r.Context(), id, id.Username)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CurrentUserResponse{
		Message:    "Token is valid",
		Username:   id.Username,
		LocationID: id.LocationID,
		User:       user,
	})
}

// AuthMiddleware resolves the session cookie into a branch identity. No
// request reaches a protected handler without a complete identity.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.Resolver.Resolve(r.Context(), SessionToken(r))
		if err != nil {
			h.HandleError(w, r, err)
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), id)
		ctx = logger.With(ctx, "username", id.Username, "location_id", id.LocationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
