package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganpare/densai/internal/core/events"
)

const defaultJobTimeout = time.Minute

type EventHandler struct {
	exporter   *Service
	pool       *Pool
	jobTimeout time.Duration
	logger     *slog.Logger
}

// NewEventHandler starts a worker pool that writes the PDF of each approved
// report in the background.
func NewEventHandler(exporter *Service, config PoolConfig, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &EventHandler{
		exporter:   exporter,
		jobTimeout: defaultJobTimeout,
		logger:     logger,
	}
	h.pool = NewPool(config, h.process, logger)
	return h
}

func (h *EventHandler) HandleReportApproved(ctx context.Context, event events.Event) error {
	reportEvent, ok := event.(*events.ReportEvent)
	if !ok {
		h.logger.Error("invalid event type for report approved handler", "event_type", event.EventType())
		return fmt.Errorf("expected ReportEvent, got %T", event)
	}

	if err := h.pool.Enqueue(PDFJob{ReportID: reportEvent.ReportID, ReportNumber: reportEvent.ReportNumber}); err != nil {
		return fmt.Errorf("queue pdf for report %s: %w", reportEvent.ReportID, err)
	}

	h.logger.Info("pdf export queued for approved report",
		"report_id", reportEvent.ReportID,
		"report_number", reportEvent.ReportNumber,
		"event_id", reportEvent.EventID())
	return nil
}

func (h *EventHandler) process(job PDFJob) {
	ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
	defer cancel()

	file, err := h.exporter.ExportReportPDF(ctx, SystemActor, job.ReportID)
	if err != nil {
		h.logger.Error("background pdf export failed",
			"error", err,
			"report_id", job.ReportID,
			"report_number", job.ReportNumber)
		return
	}

	h.logger.Info("background pdf export complete",
		"report_id", job.ReportID,
		"file", file.Name)
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeReportApproved, h.HandleReportApproved)

	h.logger.Info("export event handlers registered",
		"handlers", []string{events.EventTypeReportApproved})
}

func (h *EventHandler) Shutdown() {
	h.pool.Shutdown()
}
