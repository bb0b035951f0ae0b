package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/common/validation"
	"github.com/ganpare/densai/internal/core/events"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/google/uuid"
)

// ErrSequenceConflict is returned by Repository.Create when the report
// number is already taken. The service retries it internally.
var ErrSequenceConflict = errors.New("report number already in use")

// ErrStatusChanged is returned by conditional writes that matched no row
// because the report left the expected status.
var ErrStatusChanged = errors.New("report status changed concurrently")

const defaultMaxSequenceRetries = 5

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	GetWithParties(ctx context.Context, id string) (*ReportWithParties, error)
	// UpdateDraft writes content fields only while the row is still a draft
	// and its updated_at still equals expectUpdatedAt.
	UpdateDraft(ctx context.Context, r *Report, expectUpdatedAt time.Time) error
	// Transition applies change only if the row is in change.From.
	Transition(ctx context.Context, id string, change StatusChange) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Report, int64, error)
	// MaxSequence returns the highest sequence among numbers with prefix.
	MaxSequence(ctx context.Context, prefix string) (int64, error)
	ListApproved(ctx context.Context, bankCode string, from, to time.Time) ([]*ReportWithParties, error)
}

// StatusChange describes a single conditional status write.
type StatusChange struct {
	From            Status
	To              Status
	ApproverID      *int64
	ApprovedAt      *time.Time
	RejectionReason *string
	SubmittedAt     *time.Time
	// ClearDecision resets approver and rejection fields, used by reopen.
	ClearDecision bool
	// ExpectUpdatedAt, when set, also requires the row to be unmodified since
	// the snapshot the caller validated.
	ExpectUpdatedAt *time.Time
	At              time.Time
}

type NumberGenerator interface {
	NextReportNumber(ctx context.Context, now time.Time) (string, error)
	Resync(ctx context.Context, now time.Time, floor int64) error
	ReportNumberPrefix(now time.Time) string
}

// Directory validates institution references at submit time.
type Directory interface {
	ResolveBranch(ctx context.Context, bankCode, branchCode string) (bankKnown, branchKnown bool, err error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Options struct {
	MaxSequenceRetries  int
	AllowReopenRejected bool
	Directory           Directory
	Publisher           Publisher
	Clock               func() time.Time
}

type Service struct {
	repo        Repository
	numbers     NumberGenerator
	directory   Directory
	publisher   Publisher
	logger      *slog.Logger
	now         func() time.Time
	maxRetries  int
	allowReopen bool
}

func NewService(repo Repository, numbers NumberGenerator, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxSequenceRetries <= 0 {
		opts.MaxSequenceRetries = defaultMaxSequenceRetries
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		repo:        repo,
		numbers:     numbers,
		directory:   opts.Directory,
		publisher:   opts.Publisher,
		logger:      logger,
		now:         opts.Clock,
		maxRetries:  opts.MaxSequenceRetries,
		allowReopen: opts.AllowReopenRejected,
	}
}

func requireActor(actor *coreuser.Actor) error {
	if actor == nil || actor.ID == 0 {
		return internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken)
	}
	return nil
}

func requireRole(actor *coreuser.Actor, role coreuser.Role) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.Has(role) {
		return internal.NewForbiddenError(fmt.Sprintf("%s role required", role), internal.ErrCodeRoleRequired)
	}
	return nil
}

// CreateReport stores a new report with a freshly assigned report number.
func (s *Service) CreateReport(ctx context.Context, actor *coreuser.Actor, dto CreateReportDTO) (*Report, error) {
	if err := requireRole(actor, coreuser.RoleHandler); err != nil {
		s.logger.Warn("create report denied", "actor_id", actorID(actor), "error", err)
		return nil, err
	}

	r := &Report{
		ID:                 uuid.New().String(),
		UserNumber:         dto.UserNumber,
		BankCode:           dto.BankCode,
		BranchCode:         dto.BranchCode,
		CompanyName:        dto.CompanyName,
		ContactPersonName:  dto.ContactPersonName,
		InquiryContent:     dto.InquiryContent,
		ResponseContent:    dto.ResponseContent,
		EscalationRequired: dto.EscalationRequired,
		EscalationReason:   trimmedPtr(dto.EscalationReason),
		Status:             StatusDraft,
		HandlerID:          actor.ID,
	}
	r.Normalize()

	if appErr := validateLengths(r); appErr != nil {
		return nil, appErr
	}

	if dto.Submit {
		if err := s.validateSubmission(ctx, r); err != nil {
			s.logger.Warn("create report validation failed", "actor_id", actor.ID, "error", err)
			return nil, err
		}
		r.Status = StatusPendingApproval
	}

	if err := s.insertWithNumber(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("report created",
		"report_id", r.ID,
		"report_number", r.ReportNumber,
		"handler_id", actor.ID,
		"status", r.Status)

	s.publish(ctx, events.EventTypeReportCreated, r, actor.ID, "", StatusDraft)
	if r.Status == StatusPendingApproval {
		s.publish(ctx, events.EventTypeReportSubmitted, r, actor.ID, StatusDraft, StatusPendingApproval)
	}
	return r, nil
}

// insertWithNumber assigns a report number and inserts, retrying a bounded
// number of times when the number collides with an existing row. Timestamps
// are taken after each allocation so creation order follows number order.
func (s *Service) insertWithNumber(ctx context.Context, r *Report) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		allocatedAt := s.now()
		number, err := s.numbers.NextReportNumber(ctx, allocatedAt)
		if err != nil {
			s.logger.Error("failed to allocate report number", "error", err)
			return internal.NewInternalError("failed to allocate report number", err)
		}
		r.ReportNumber = number
		stamp := s.now()
		r.CreatedAt, r.UpdatedAt = stamp, stamp
		if r.Status == StatusPendingApproval {
			r.SubmittedAt = &stamp
		}

		err = s.repo.Create(ctx, r)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSequenceConflict) {
			s.logger.Error("failed to create report", "error", err, "report_number", number)
			return internal.NewInternalError("failed to create report", err)
		}

		lastErr = err
		s.logger.Warn("report number collision, resyncing counter",
			"report_number", number,
			"attempt", attempt+1)

		floor, err := s.repo.MaxSequence(ctx, s.numbers.ReportNumberPrefix(allocatedAt))
		if err != nil {
			return internal.NewInternalError("failed to read highest report number", err)
		}
		if err := s.numbers.Resync(ctx, allocatedAt, floor); err != nil {
			return internal.NewInternalError("failed to resync report counter", err)
		}
	}

	r.ReportNumber = ""
	s.logger.Error("report number retries exhausted", "attempts", s.maxRetries)
	return internal.NewInternalError("could not assign a unique report number", lastErr)
}

func (s *Service) GetReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "get report", id)
	}
	if !CanView(actor, r) {
		s.logger.Warn("report read denied", "report_id", id, "actor_id", actor.ID)
		return nil, internal.ErrForbidden
	}
	return r, nil
}

func (s *Service) GetReportWithParties(ctx context.Context, actor *coreuser.Actor, id string) (*ReportWithParties, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rp, err := s.repo.GetWithParties(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "get report with parties", id)
	}
	if !CanView(actor, rp.Report) {
		s.logger.Warn("report read denied", "report_id", id, "actor_id", actor.ID)
		return nil, internal.ErrForbidden
	}
	return rp, nil
}

// ListReports returns the page of reports visible to actor.
func (s *Service) ListReports(ctx context.Context, actor *coreuser.Actor, q ListQuery) (*ListResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var status Status
	if q.Status != "" {
		st, ok := ParseStatus(q.Status)
		if !ok {
			return nil, internal.NewValidationFieldError("status", "status must be one of draft, pending_approval, approved, rejected", internal.ErrCodeInvalidStatus)
		}
		status = st
	}

	filter := BuildFilter(actor, status, q.Search)
	reports, total, err := s.repo.List(ctx, filter, q.Limit, q.Offset)
	if err != nil {
		s.logger.Error("failed to list reports", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to list reports", err)
	}
	if reports == nil {
		reports = []*Report{}
	}
	return &ListResult{Reports: reports, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// UpdateReportDraft applies a partial edit. Only the handler of record may
// edit, and only while the report is a draft.
func (s *Service) UpdateReportDraft(ctx context.Context, actor *coreuser.Actor, id string, dto UpdateReportDTO) (*Report, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "update report", id)
	}
	if !r.IsOwnedBy(actor.ID) {
		s.logger.Warn("update report denied: not owner", "report_id", id, "actor_id", actor.ID, "handler_id", r.HandlerID)
		return nil, internal.ErrNotReportOwner
	}
	if !r.IsDraft() {
		s.logger.Warn("update report rejected: not a draft", "report_id", id, "status", r.Status)
		return nil, internal.ErrInvalidTransition
	}

	prev := r.UpdatedAt
	dto.Apply(r)
	if appErr := validateLengths(r); appErr != nil {
		return nil, appErr
	}
	// every edit moves updated_at forward at storage precision so a pending
	// submit notices it
	r.UpdatedAt = s.now().Truncate(time.Microsecond)
	if !r.UpdatedAt.After(prev) {
		r.UpdatedAt = prev.Add(time.Microsecond)
	}

	if err := s.repo.UpdateDraft(ctx, r, prev); err != nil {
		return nil, s.mapRepoError(err, "update report", id)
	}

	s.logger.Info("report draft updated", "report_id", id, "actor_id", actor.ID)
	return r, nil
}

// SubmitReport moves a complete draft to pending_approval.
func (s *Service) SubmitReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error) {
	if err := requireRole(actor, coreuser.RoleHandler); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "submit report", id)
	}
	if !r.IsOwnedBy(actor.ID) {
		s.logger.Warn("submit report denied: not owner", "report_id", id, "actor_id", actor.ID)
		return nil, internal.ErrNotReportOwner
	}
	if !CanTransition(r.Status, StatusPendingApproval) {
		s.logger.Warn("submit report rejected", "report_id", id, "status", r.Status)
		return nil, internal.ErrInvalidTransition
	}

	validated := r.UpdatedAt
	r.Normalize()
	if err := s.validateSubmission(ctx, r); err != nil {
		s.logger.Warn("submit report validation failed", "report_id", id, "error", err)
		return nil, err
	}

	now := s.now()
	change := StatusChange{From: StatusDraft, To: StatusPendingApproval, SubmittedAt: &now, ExpectUpdatedAt: &validated, At: now}
	if err := s.repo.Transition(ctx, id, change); err != nil {
		return nil, s.mapRepoError(err, "submit report", id)
	}

	r.Status = StatusPendingApproval
	r.SubmittedAt = &now
	r.UpdatedAt = now

	s.logger.Info("report submitted", "report_id", id, "report_number", r.ReportNumber, "actor_id", actor.ID)
	s.publish(ctx, events.EventTypeReportSubmitted, r, actor.ID, StatusDraft, StatusPendingApproval)
	return r, nil
}

// SetReportStatus records an approver's decision on a pending report.
func (s *Service) SetReportStatus(ctx context.Context, actor *coreuser.Actor, id string, dto SetStatusDTO) (*Report, error) {
	if err := requireRole(actor, coreuser.RoleApprover); err != nil {
		s.logger.Warn("set report status denied", "report_id", id, "actor_id", actorID(actor))
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "set report status", id)
	}

	to := Status(dto.Status)
	if !CanTransition(r.Status, to) {
		s.logger.Warn("status change rejected", "report_id", id, "from", r.Status, "to", to)
		return nil, internal.ErrInvalidTransition
	}

	now := s.now()
	approverID := actor.ID
	change := StatusChange{From: StatusPendingApproval, To: to, ApproverID: &approverID, At: now}
	if to == StatusApproved {
		change.ApprovedAt = &now
	} else {
		change.RejectionReason = trimmedPtr(dto.RejectionReason)
	}

	if err := s.repo.Transition(ctx, id, change); err != nil {
		return nil, s.mapRepoError(err, "set report status", id)
	}

	r.Status = to
	r.ApproverID = &approverID
	r.ApprovedAt = change.ApprovedAt
	r.RejectionReason = change.RejectionReason
	r.UpdatedAt = now

	eventType := events.EventTypeReportApproved
	if to == StatusRejected {
		eventType = events.EventTypeReportRejected
	}
	s.logger.Info("report status changed",
		"report_id", id,
		"report_number", r.ReportNumber,
		"status", to,
		"approver_id", actor.ID)
	s.publish(ctx, eventType, r, actor.ID, StatusPendingApproval, to)
	return r, nil
}

func (s *Service) ApproveReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error) {
	return s.SetReportStatus(ctx, actor, id, SetStatusDTO{Status: string(StatusApproved)})
}

func (s *Service) RejectReport(ctx context.Context, actor *coreuser.Actor, id, reason string) (*Report, error) {
	return s.SetReportStatus(ctx, actor, id, SetStatusDTO{Status: string(StatusRejected), RejectionReason: &reason})
}

// ReopenReport returns a rejected report to draft so its handler can revise
// and resubmit it. The previous decision is cleared.
func (s *Service) ReopenReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error) {
	if err := requireRole(actor, coreuser.RoleHandler); err != nil {
		return nil, err
	}
	if !s.allowReopen {
		return nil, internal.NewForbiddenError("reopening rejected reports is disabled", internal.ErrCodeReopenDisabled)
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "reopen report", id)
	}
	if !r.IsOwnedBy(actor.ID) {
		return nil, internal.ErrNotReportOwner
	}
	if !CanTransition(r.Status, StatusDraft) {
		s.logger.Warn("reopen rejected", "report_id", id, "status", r.Status)
		return nil, internal.ErrInvalidTransition
	}

	now := s.now()
	change := StatusChange{From: StatusRejected, To: StatusDraft, ClearDecision: true, At: now}
	if err := s.repo.Transition(ctx, id, change); err != nil {
		return nil, s.mapRepoError(err, "reopen report", id)
	}

	r.Status = StatusDraft
	r.ApproverID = nil
	r.RejectionReason = nil
	r.SubmittedAt = nil
	r.UpdatedAt = now

	s.logger.Info("report reopened", "report_id", id, "actor_id", actor.ID)
	s.publish(ctx, events.EventTypeReportReopened, r, actor.ID, StatusRejected, StatusDraft)
	return r, nil
}

// ListApprovedForBank returns reports of one bank approved in [from, to).
func (s *Service) ListApprovedForBank(ctx context.Context, actor *coreuser.Actor, bankCode string, from, to time.Time) ([]*ReportWithParties, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasAny(coreuser.RoleApprover, coreuser.RoleAdmin) {
		return nil, internal.NewForbiddenError("approver or admin role required", internal.ErrCodeRoleRequired)
	}
	reports, err := s.repo.ListApproved(ctx, bankCode, from, to)
	if err != nil {
		s.logger.Error("failed to list approved reports", "error", err, "bank_code", bankCode)
		return nil, internal.NewInternalError("failed to list approved reports", err)
	}
	return reports, nil
}

func (s *Service) validateSubmission(ctx context.Context, r *Report) error {
	appErr := ValidateForSubmit(r)
	if s.directory == nil || r.BankCode == "" {
		if appErr != nil {
			return appErr
		}
		return nil
	}

	bankKnown, branchKnown, err := s.directory.ResolveBranch(ctx, r.BankCode, r.BranchCode)
	if err != nil {
		s.logger.Error("failed to resolve institution", "error", err, "bank_code", r.BankCode)
		return internal.NewInternalError("failed to resolve institution", err)
	}

	var extra []internal.ValidationError
	if !bankKnown {
		extra = append(extra, internal.ValidationError{Field: "bank_code", Message: "bank_code does not match a known financial institution", Code: string(internal.ErrCodeUnknownReference)})
	} else if r.BranchCode != "" && !branchKnown {
		extra = append(extra, internal.ValidationError{Field: "branch_code", Message: "branch_code does not match a branch of the institution", Code: string(internal.ErrCodeUnknownReference)})
	}

	if merged := validation.Append(appErr, extra...); merged != nil {
		return merged
	}
	return nil
}

func (s *Service) mapRepoError(err error, op, id string) error {
	switch {
	case errors.Is(err, internal.ErrReportNotFound):
		return internal.ErrReportNotFound
	case errors.Is(err, ErrStatusChanged):
		s.logger.Warn(op+": lost status race", "report_id", id)
		return internal.ErrInvalidTransition
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error(op+" failed", "error", err, "report_id", id)
	return internal.NewInternalError(op+" failed", err)
}

func (s *Service) publish(ctx context.Context, eventType string, r *Report, actorID int64, from, to Status) {
	if s.publisher == nil {
		return
	}
	event := events.NewReportEvent(eventType, r.ID, r.ReportNumber, actorID, string(from), string(to))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish report event", "event_type", eventType, "report_id", r.ID, "error", err)
	}
}

func actorID(actor *coreuser.Actor) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
