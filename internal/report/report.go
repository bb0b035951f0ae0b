package report

import (
	"strings"
	"time"

	reportDatamodel "github.com/ganpare/densai/internal/core/datamodel/report"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

var AllStatuses = []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected}

func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// transitions lists every legal edge of the lifecycle. approved is terminal.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusDraft},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Report struct {
	ID                 string     `json:"id"`
	ReportNumber       string     `json:"report_number"`
	UserNumber         string     `json:"user_number"`
	BankCode           string     `json:"bank_code"`
	BranchCode         string     `json:"branch_code"`
	CompanyName        string     `json:"company_name"`
	ContactPersonName  string     `json:"contact_person_name"`
	InquiryContent     string     `json:"inquiry_content"`
	ResponseContent    string     `json:"response_content"`
	EscalationRequired bool       `json:"escalation_required"`
	EscalationReason   *string    `json:"escalation_reason,omitempty"`
	Status             Status     `json:"status"`
	HandlerID          int64      `json:"handler_id"`
	ApproverID         *int64     `json:"approver_id,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (r *Report) IsOwnedBy(userID int64) bool {
	return r.HandlerID == userID
}

func (r *Report) IsDraft() bool {
	return r.Status == StatusDraft
}

func (r *Report) IsApproved() bool {
	return r.Status == StatusApproved
}

// Normalize trims surrounding whitespace from every free-text field and drops
// the escalation reason when escalation is off.
func (r *Report) Normalize() {
	r.UserNumber = strings.TrimSpace(r.UserNumber)
	r.BankCode = strings.TrimSpace(r.BankCode)
	r.BranchCode = strings.TrimSpace(r.BranchCode)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.ContactPersonName = strings.TrimSpace(r.ContactPersonName)
	r.InquiryContent = strings.TrimSpace(r.InquiryContent)
	r.ResponseContent = strings.TrimSpace(r.ResponseContent)
	if r.EscalationReason != nil {
		trimmed := strings.TrimSpace(*r.EscalationReason)
		r.EscalationReason = &trimmed
	}
	if !r.EscalationRequired || (r.EscalationReason != nil && *r.EscalationReason == "") {
		r.EscalationReason = nil
	}
}

// Party is a user as shown on a rendered report.
type Party struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReportWithParties is a report joined with the people and the institution
// it references. It is what the print and PDF renderers consume.
type ReportWithParties struct {
	*Report
	Handler    *Party `json:"handler,omitempty"`
	Approver   *Party `json:"approver,omitempty"`
	BankName   string `json:"bank_name,omitempty"`
	BranchName string `json:"branch_name,omitempty"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func ToDataModel(r *Report) *reportDatamodel.Report {
	return &reportDatamodel.Report{
		ID:                 r.ID,
		ReportNumber:       r.ReportNumber,
		UserNumber:         r.UserNumber,
		BankCode:           r.BankCode,
		BranchCode:         r.BranchCode,
		CompanyName:        r.CompanyName,
		ContactPersonName:  r.ContactPersonName,
		InquiryContent:     r.InquiryContent,
		ResponseContent:    r.ResponseContent,
		EscalationRequired: r.EscalationRequired,
		EscalationReason:   r.EscalationReason,
		Status:             string(r.Status),
		HandlerID:          r.HandlerID,
		ApproverID:         r.ApproverID,
		RejectionReason:    r.RejectionReason,
		SubmittedAt:        utcPtr(r.SubmittedAt),
		ApprovedAt:         utcPtr(r.ApprovedAt),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func FromDataModel(r *reportDatamodel.Report) *Report {
	return &Report{
		ID:                 r.ID,
		ReportNumber:       r.ReportNumber,
		UserNumber:         r.UserNumber,
		BankCode:           r.BankCode,
		BranchCode:         r.BranchCode,
		CompanyName:        r.CompanyName,
		ContactPersonName:  r.ContactPersonName,
		InquiryContent:     r.InquiryContent,
		ResponseContent:    r.ResponseContent,
		EscalationRequired: r.EscalationRequired,
		EscalationReason:   r.EscalationReason,
		Status:             Status(r.Status),
		HandlerID:          r.HandlerID,
		ApproverID:         r.ApproverID,
		RejectionReason:    r.RejectionReason,
		SubmittedAt:        r.SubmittedAt,
		ApprovedAt:         r.ApprovedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func FromDataModelSlice(reports []*reportDatamodel.Report) []*Report {
	result := make([]*Report, len(reports))
	for i, r := range reports {
		result[i] = FromDataModel(r)
	}
	return result
}
