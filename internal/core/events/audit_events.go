package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAssetUpdated    = "asset.updated"
	EventTypeAssetCheckedOut = "asset.checked_out"
	EventTypeAssetCheckedIn  = "asset.checked_in"
	EventTypeUserCreated     = "user.created"
)

// AuditEventTypes lists every mutating relay operation that is audited.
var AuditEventTypes = []string{
	EventTypeAssetUpdated,
	EventTypeAssetCheckedOut,
	EventTypeAssetCheckedIn,
	EventTypeUserCreated,
}

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// AuditEvent records one mutating call made on behalf of a branch operator.
type AuditEvent struct {
	BaseEvent
	Operator   string `json:"operator"`
	LocationID int64  `json:"location_id"`
	ResourceID int64  `json:"resource_id,omitempty"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
}

func NewAuditEvent(eventType, operator string, locationID, resourceID int64, err error) *AuditEvent {
	outcome, reason := OutcomeSucceeded, ""
	if err != nil {
		outcome, reason = OutcomeFailed, err.Error()
	}
	return &AuditEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"operator":    operator,
				"location_id": locationID,
				"resource_id": resourceID,
				"outcome":     outcome,
			},
		},
		Operator:   operator,
		LocationID: locationID,
		ResourceID: resourceID,
		Outcome:    outcome,
		Reason:     reason,
	}
}

// AuditLogHandler writes one structured line per audit event.
func AuditLogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
		}
		if ae, ok := event.(*AuditEvent); ok {
			attrs = append(attrs,
				"operator", ae.Operator,
				"location_id", ae.LocationID,
				"resource_id", ae.ResourceID,
				"outcome", ae.Outcome)
			if ae.Reason != "" {
				attrs = append(attrs, "reason", ae.Reason)
			}
		}
		logger.InfoContext(ctx, "audit", attrs...)
		return nil
	}
}

// RegisterAuditLog subscribes the audit log writer to every audited type.
func RegisterAuditLog(bus *EventBus, logger *slog.Logger) {
	handler := AuditLogHandler(logger)
	for _, eventType := range AuditEventTypes {
		bus.Subscribe(eventType, handler)
	}
}
