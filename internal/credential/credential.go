package credential

import (
	"context"
	"errors"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
)

// BranchCredential is one branch operator: the login they use here and the
// upstream API token plus location id their requests are scoped to.
type BranchCredential struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
	DisplayName  string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Secret       string `json:"secret"`
	LocationID   int64  `json:"locationId"`
}

// Profile is the browser-safe view of a credential. It never carries the
// password hash or the upstream secret.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	LocationID  int64  `json:"locationId"`
}

var (
	ErrNotFound          = errors.New("credential not found")
	ErrDuplicateUsername = errors.New("duplicate credential username")
)

// Repository looks credentials up by exact username. Implementations are
// read-only at request time.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*BranchCredential, error)
	Ping(ctx context.Context) error
}

// Profile returns the sanitized view of c.
func (c BranchCredential) Profile() Profile {
	return Profile{
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		LocationID:  c.LocationID,
	}
}

// Identity returns the relay scope for c, or ErrCredentialIncomplete when
// either scoping field is missing. Never returns a partial identity.
func (c BranchCredential) Identity() (internal.Identity, error) {
	id := internal.Identity{
		Username:       c.Username,
		UpstreamSecret: c.Secret,
		LocationID:     c.LocationID,
	}
	if !id.Complete() {
		return internal.Identity{}, internal.ErrCredentialIncomplete
	}
	return id, nil
}
