package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
)

// Claims is the session token payload. The username is the only identity
// carried; the branch secret and location are looked up on every request.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(username string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*Claims, error)
	TTL() time.Duration
}

// IdentityResolver turns a session token into a complete branch identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (internal.Identity, error)
}

// Session is a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   credential.Profile
}

// CurrentUserResponse is returned by GET /auth/user.
type CurrentUserResponse struct {
	Message    string `json:"message"`
	Username   string `json:"username"`
	LocationID int64  `json:"locationId"`
	User       any    `json:"user"`
}

type LoginResponse struct {
	Message   string             `json:"message"`
	User      credential.Profile `json:"user"`
	ExpiresAt time.Time          `json:"expiresAt"`
}
