package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ganpare/densai/internal/core/events"
)

type EventHandler struct {
	metrics *Metrics
	logger  *slog.Logger
}

func NewEventHandler(m *Metrics, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{metrics: m, logger: logger}
}

func (h *EventHandler) HandleReportEvent(_ context.Context, event events.Event) error {
	reportEvent, ok := event.(*events.ReportEvent)
	if !ok {
		return fmt.Errorf("expected ReportEvent, got %T", event)
	}

	if reportEvent.EventType() == events.EventTypeReportCreated {
		h.metrics.ReportsCreated.Inc()
		return nil
	}
	h.metrics.ReportTransitions.WithLabelValues(reportEvent.FromStatus, reportEvent.ToStatus).Inc()
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, t := range events.ReportEventTypes {
		eventBus.Subscribe(t, h.HandleReportEvent)
	}

	h.logger.Info("metrics event handlers registered", "handlers", events.ReportEventTypes)
}
