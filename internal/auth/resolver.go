package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
)

// Resolver is the only place that reads an upstream secret out of the
// credential store. It yields a complete identity or an error, never both
// and never a partial identity.
type Resolver struct {
	tokens      TokenService
	credentials credential.Repository
	logger      *slog.Logger
}

func NewResolver(tokens TokenService, credentials credential.Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tokens: tokens, credentials: credentials, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (internal.Identity, error) {
	if token == "" {
		return internal.Identity{}, internal.ErrMissingToken
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return internal.Identity{}, internal.ErrInvalidToken
	}

	cred, err := r.credentials.FindByUsername(ctx, claims.Username)
	if errors.Is(err, credential.ErrNotFound) {
		r.logger.Warn("session for unknown operator", "username", claims.Username)
		return internal.Identity{}, internal.ErrCredentialNotFound
	}
	if err != nil {
		return internal.Identity{}, internal.NewInternalError("credential lookup failed", err)
	}

	identity, err := cred.Identity()
	if err != nil {
		r.logger.Warn("operator credential is incomplete", "username", claims.Username)
		return internal.Identity{}, err
	}
	return identity, nil
}
