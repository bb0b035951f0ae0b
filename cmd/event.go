package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/ganpare/densai/internal/core/events"
	"github.com/ganpare/densai/internal/metrics"
	"github.com/ganpare/densai/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the report lifecycle events and publish test events through an in-process bus`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List report lifecycle event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.ReportEventTypes {
			fmt.Println(t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test report event",
	Long:  `Publish a test report event to an in-process bus with the metrics subscriber attached, for debugging`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventReportID     string
	eventReportNumber string
	eventFrom         string
	eventTo           string
)

func publishTestEvent(eventType string) error {
	if !slices.Contains(events.ReportEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q, see `event list`", eventType)
	}

	lg := logger.LoggerWrapper()
	eventBus := events.NewEventBus(lg)

	m := metrics.New()
	metrics.NewEventHandler(m, lg).RegisterEventHandlers(eventBus)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		re := event.(*events.ReportEvent)
		lg.Info("test handler received event",
			"event_id", re.EventID(),
			"event_type", re.EventType(),
			"report_number", re.ReportNumber,
			"from_status", re.FromStatus,
			"to_status", re.ToStatus)
		return nil
	})

	testEvent := events.NewReportEvent(eventType, eventReportID, eventReportNumber, 0, eventFrom, eventTo)
	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.EventID())

	if err := eventBus.PublishSync(context.Background(), testEvent); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	lg.Info("test event published successfully",
		"reports_created_total", testutil.ToFloat64(m.ReportsCreated),
		"report_transitions_total", testutil.ToFloat64(m.ReportTransitions.WithLabelValues(eventFrom, eventTo)))
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventReportID, "report-id", "test-report", "report id carried by the event")
	publishEventCmd.Flags().StringVar(&eventReportNumber, "report-number", "RPT-TEST-001", "report number carried by the event")
	publishEventCmd.Flags().StringVar(&eventFrom, "from", "pending_approval", "previous status")
	publishEventCmd.Flags().StringVar(&eventTo, "to", "approved", "new status")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
