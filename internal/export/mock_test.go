package export_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ganpare/densai/internal"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/report"
)

var jst = time.FixedZone("JST", 9*3600)

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]*report.ReportWithParties
}

func newFakeReports(reports ...*report.ReportWithParties) *fakeReports {
	f := &fakeReports{reports: map[string]*report.ReportWithParties{}}
	for _, rp := range reports {
		f.reports[rp.ID] = rp
	}
	return f
}

func (f *fakeReports) GetReportWithParties(_ context.Context, actor *coreuser.Actor, id string) (*report.ReportWithParties, error) {
	if actor == nil || actor.ID == 0 {
		return nil, internal.ErrInvalidToken
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rp, ok := f.reports[id]
	if !ok {
		return nil, internal.ErrReportNotFound
	}
	if !report.CanView(actor, rp.Report) {
		return nil, internal.ErrForbidden
	}
	return rp, nil
}

func (f *fakeReports) ListApprovedForBank(_ context.Context, _ *coreuser.Actor, bankCode string, from, to time.Time) ([]*report.ReportWithParties, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*report.ReportWithParties
	for _, rp := range f.reports {
		if rp.BankCode != bankCode || !rp.IsApproved() || rp.ApprovedAt == nil {
			continue
		}
		if rp.ApprovedAt.Before(from) || !rp.ApprovedAt.Before(to) {
			continue
		}
		out = append(out, rp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportNumber < out[j].ReportNumber })
	return out, nil
}

func approvedReport(id, number string, approvedAt time.Time) *report.ReportWithParties {
	approverID := int64(3)
	return &report.ReportWithParties{
		Report: &report.Report{
			ID:                id,
			ReportNumber:      number,
			UserNumber:        "U-1",
			BankCode:          "0001",
			BranchCode:        "100",
			CompanyName:       "Acme Trading",
			ContactPersonName: "Sato",
			InquiryContent:    "Why was the transfer held?",
			ResponseContent:   "It cleared.",
			Status:            report.StatusApproved,
			HandlerID:         1,
			ApproverID:        &approverID,
			ApprovedAt:        &approvedAt,
			CreatedAt:         approvedAt.Add(-time.Hour),
			UpdatedAt:         approvedAt,
		},
		Handler:    &report.Party{ID: 1, Name: "Hana Handler"},
		Approver:   &report.Party{ID: 3, Name: "Aki Approver"},
		BankName:   "Mizuho",
		BranchName: "Head Office",
	}
}

func draftReport(id string) *report.ReportWithParties {
	now := time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC)
	return &report.ReportWithParties{
		Report: &report.Report{
			ID:           id,
			ReportNumber: "RPT-2025-04-900",
			BankCode:     "0001",
			BranchCode:   "100",
			Status:       report.StatusDraft,
			HandlerID:    1,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

var (
	handlerActor  = &coreuser.Actor{ID: 1, Name: "Hana Handler", Roles: []coreuser.Role{coreuser.RoleHandler}}
	approverActor = &coreuser.Actor{ID: 3, Name: "Aki Approver", Roles: []coreuser.Role{coreuser.RoleApprover}}
)
