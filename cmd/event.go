package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Audit event commands",
	Long:  `Inspect the audit event bus: publish sample events through the audit log writer.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample audit event",
	Long:  `Publish a sample audit event to check the audit log output. Known types: ` + strings.Join(events.AuditEventTypes, ", "),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventOperator string
	eventLocation int64
	eventResource int64
)

func publishTestEvent(eventType string) error {
	if !slices.Contains(events.AuditEventTypes, eventType) {
		return fmt.Errorf("unknown audit event type %q", eventType)
	}

	log := logger.LoggerWrapper()
	bus := events.NewEventBus(log)
	events.RegisterAuditLog(bus, log)

	event := events.NewAuditEvent(eventType, eventOperator, eventLocation, eventResource, nil)
	log.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// synchronous so a failing audit writer fails the command
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventOperator, "operator", "cli", "operator username recorded on the event")
	publishEventCmd.Flags().Int64Var(&eventLocation, "location", 0, "branch location id recorded on the event")
	publishEventCmd.Flags().Int64Var(&eventResource, "resource", 0, "asset or user id recorded on the event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
