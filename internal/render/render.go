// Package render turns approved reports into printable documents.
package render

import (
	"time"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/report"
)

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

// Document is an opaque rendered artifact.
type Document struct {
	ContentType string
	Ext         string
	Body        []byte
}

type Renderer interface {
	RenderForPrint(rp *report.ReportWithParties) (*Document, error)
}

// printable rejects anything that is not an approved report.
func printable(rp *report.ReportWithParties) error {
	if rp == nil || rp.Report == nil {
		return internal.ErrReportNotFound
	}
	if !rp.IsApproved() {
		return internal.ErrReportNotApproved
	}
	return nil
}

// view flattens a report into display strings.
type view struct {
	ReportNumber       string
	Status             string
	ApprovedAt         string
	CreatedAt          string
	BankCode           string
	BankName           string
	BranchCode         string
	BranchName         string
	UserNumber         string
	CompanyName        string
	ContactPersonName  string
	InquiryContent     string
	ResponseContent    string
	EscalationRequired bool
	EscalationReason   string
	HandlerName        string
	ApproverName       string
}

const displayLayout = "2006-01-02 15:04"

func newView(rp *report.ReportWithParties, loc *time.Location) view {
	if loc == nil {
		loc = time.UTC
	}
	v := view{
		ReportNumber:       rp.ReportNumber,
		Status:             string(rp.Status),
		CreatedAt:          rp.CreatedAt.In(loc).Format(displayLayout),
		BankCode:           rp.BankCode,
		BankName:           rp.BankName,
		BranchCode:         rp.BranchCode,
		BranchName:         rp.BranchName,
		UserNumber:         rp.UserNumber,
		CompanyName:        rp.CompanyName,
		ContactPersonName:  rp.ContactPersonName,
		InquiryContent:     rp.InquiryContent,
		ResponseContent:    rp.ResponseContent,
		EscalationRequired: rp.EscalationRequired,
	}
	if rp.ApprovedAt != nil {
		v.ApprovedAt = rp.ApprovedAt.In(loc).Format(displayLayout)
	}
	if rp.EscalationReason != nil {
		v.EscalationReason = *rp.EscalationReason
	}
	if rp.Handler != nil {
		v.HandlerName = rp.Handler.Name
	}
	if rp.Approver != nil {
		v.ApproverName = rp.Approver.Name
	}
	return v
}
