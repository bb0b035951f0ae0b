package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeReportCreated   = "report.created"
	EventTypeReportSubmitted = "report.submitted"
	EventTypeReportApproved  = "report.approved"
	EventTypeReportRejected  = "report.rejected"
	EventTypeReportReopened  = "report.reopened"
)

var ReportEventTypes = []string{
	EventTypeReportCreated,
	EventTypeReportSubmitted,
	EventTypeReportApproved,
	EventTypeReportRejected,
	EventTypeReportReopened,
}

// ReportEvent is published after a report row has been written.
type ReportEvent struct {
	BaseEvent
	ReportID     string `json:"report_id"`
	ReportNumber string `json:"report_number"`
	ActorID      int64  `json:"actor_id"`
	FromStatus   string `json:"from_status,omitempty"`
	ToStatus     string `json:"to_status"`
}

func NewReportEvent(eventType, reportID, reportNumber string, actorID int64, from, to string) *ReportEvent {
	return &ReportEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
		},
		ReportID:     reportID,
		ReportNumber: reportNumber,
		ActorID:      actorID,
		FromStatus:   from,
		ToStatus:     to,
	}
}
