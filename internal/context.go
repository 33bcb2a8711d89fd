package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

// Identity is the branch scope a relay operation runs under: which upstream
// credential to present and which location to scope to. Both fields are
// mandatory; an Identity is only ever built complete.
type Identity struct {
	Username       string
	UpstreamSecret string
	LocationID     int64
}

// Complete reports whether both scoping inputs are present.
func (i Identity) Complete() bool {
	return i.UpstreamSecret != "" && i.LocationID > 0
}

// LogValue keeps the upstream secret out of structured logs.
func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", i.Username),
		slog.Int64("location_id", i.LocationID),
	)
}

// String keeps the upstream secret out of fmt output.
func (i Identity) String() string {
	return fmt.Sprintf("%s@location:%d", i.Username, i.LocationID)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ContextIdentityKey).(Identity)
	if !ok || !id.Complete() {
		return Identity{}, false
	}
	return id, true
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
