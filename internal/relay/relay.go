// Package relay runs branch-scoped operations against the inventory API on
// behalf of a resolved operator identity.
package relay

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/upstream"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

// Caller is the subset of an upstream client the relay uses.
type Caller interface {
	Get(ctx context.Context, path string, params url.Values) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
	Patch(ctx context.Context, path string, body any) (any, error)
}

// ClientFactory builds a Caller authenticated as one branch secret.
type ClientFactory func(secret string) Caller

// GatewayClients adapts an upstream gateway to a ClientFactory.
func GatewayClients(g *upstream.Gateway) ClientFactory {
	return func(secret string) Caller {
		return g.Client(secret)
	}
}

// Publisher receives audit events for mutating operations.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Options struct {
	// EnforceLocationScope rejects single asset and user reads whose
	// location differs from the caller's branch.
	EnforceLocationScope bool
	Events               Publisher
}

type Service struct {
	clients ClientFactory
	logger  *slog.Logger
	opts    Options
}

func NewService(clients ClientFactory, log *slog.Logger, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		clients: clients,
		logger:  log,
		opts:    opts,
	}
}

// client refuses to build an upstream client for a partial identity.
func (s *Service) client(id internal.Identity) (Caller, error) {
	if !id.Complete() {
		return nil, internal.ErrCredentialIncomplete
	}
	return s.clients(id.UpstreamSecret), nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.logger
}

func (s *Service) audit(ctx context.Context, eventType string, id internal.Identity, resourceID int64, err error) {
	if s.opts.Events == nil {
		return
	}
	ev := events.NewAuditEvent(eventType, id.Username, id.LocationID, resourceID, err)
	if pubErr := s.opts.Events.Publish(ctx, ev); pubErr != nil {
		s.log(ctx).Warn("audit publish failed", "event_type", eventType, "error", pubErr)
	}
}

func locationParam(id internal.Identity) string {
	return strconv.FormatInt(id.LocationID, 10)
}

// cloneParams copies caller-supplied query parameters so forced values
// never leak back into the caller's map.
func cloneParams(params url.Values) url.Values {
	out := make(url.Values, len(params)+1)
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneBody(body map[string]any) map[string]any {
	out := make(map[string]any, len(body)+2)
	for k, v := range body {
		out[k] = v
	}
	return out
}
