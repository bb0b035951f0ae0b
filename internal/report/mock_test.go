package report_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/events"
	"github.com/ganpare/densai/internal/report"
)

// MockRepository implements report.Repository in memory
type MockRepository struct {
	mu         sync.Mutex
	reports    map[string]*report.Report
	shouldFail bool
	failError  error
	// conflicts makes the next n Create calls report a number collision
	conflicts int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{reports: make(map[string]*report.Report)}
}

func clone(r *report.Report) *report.Report {
	c := *r
	return &c
}

func (m *MockRepository) Create(ctx context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	if m.conflicts > 0 {
		m.conflicts--
		return report.ErrSequenceConflict
	}
	for _, existing := range m.reports {
		if existing.ReportNumber == r.ReportNumber {
			return report.ErrSequenceConflict
		}
	}
	m.reports[r.ID] = clone(r)
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, internal.ErrReportNotFound
	}
	return clone(r), nil
}

func (m *MockRepository) GetWithParties(ctx context.Context, id string) (*report.ReportWithParties, error) {
	r, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &report.ReportWithParties{Report: r, Handler: &report.Party{ID: r.HandlerID}}, nil
}

func (m *MockRepository) UpdateDraft(ctx context.Context, r *report.Report, expectUpdatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reports[r.ID]
	if !ok {
		return internal.ErrReportNotFound
	}
	if existing.Status != report.StatusDraft || !existing.UpdatedAt.Equal(expectUpdatedAt) {
		return report.ErrStatusChanged
	}
	m.reports[r.ID] = clone(r)
	return nil
}

func (m *MockRepository) Transition(ctx context.Context, id string, change report.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return internal.ErrReportNotFound
	}
	if r.Status != change.From {
		return report.ErrStatusChanged
	}
	if change.ExpectUpdatedAt != nil && !r.UpdatedAt.Equal(*change.ExpectUpdatedAt) {
		return report.ErrStatusChanged
	}
	r.Status = change.To
	r.UpdatedAt = change.At
	if change.ApproverID != nil {
		r.ApproverID = change.ApproverID
	}
	if change.ApprovedAt != nil {
		r.ApprovedAt = change.ApprovedAt
	}
	if change.RejectionReason != nil {
		r.RejectionReason = change.RejectionReason
	}
	if change.SubmittedAt != nil {
		r.SubmittedAt = change.SubmittedAt
	}
	if change.ClearDecision {
		r.ApproverID, r.ApprovedAt, r.RejectionReason, r.SubmittedAt = nil, nil, nil, nil
	}
	return nil
}

func (m *MockRepository) List(ctx context.Context, f report.Filter, limit, offset int) ([]*report.Report, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*report.Report
	for _, r := range m.reports {
		if f.Matches(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportNumber > out[j].ReportNumber })
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockRepository) MaxSequence(ctx context.Context, prefix string) (int64, error) {
	return 0, nil
}

func (m *MockRepository) ListApproved(ctx context.Context, bankCode string, from, to time.Time) ([]*report.ReportWithParties, error) {
	return nil, nil
}

// stubNumbers hands out sequential numbers without a database
type stubNumbers struct {
	mu      sync.Mutex
	next    int64
	resyncs int
	// onNext runs inside every allocation, e.g. to let a fake clock move on
	onNext func()
}

func (s *stubNumbers) NextReportNumber(ctx context.Context, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onNext != nil {
		s.onNext()
	}
	s.next++
	return fmt.Sprintf("%s%03d", s.ReportNumberPrefix(now), s.next), nil
}

func (s *stubNumbers) Resync(ctx context.Context, now time.Time, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resyncs++
	return nil
}

func (s *stubNumbers) ReportNumberPrefix(now time.Time) string {
	return fmt.Sprintf("RPT-%04d-%02d-", now.Year(), int(now.Month()))
}

// stubDirectory knows bank 0001 with branch 100
type stubDirectory struct{}

func (stubDirectory) ResolveBranch(ctx context.Context, bank, branch string) (bool, bool, error) {
	if bank != "0001" {
		return false, false, nil
	}
	return true, branch == "100", nil
}

// recordingPublisher keeps every published event type
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, e.EventType())
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// editBeforeTransition runs edit right before the wrapped repository applies
// the first status change, imitating a save that lands between a read and
// the conditional write.
type editBeforeTransition struct {
	*MockRepository
	edit func()
	once sync.Once
}

func (e *editBeforeTransition) Transition(ctx context.Context, id string, change report.StatusChange) error {
	e.once.Do(e.edit)
	return e.MockRepository.Transition(ctx, id, change)
}
