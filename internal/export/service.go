// Package export writes approved reports to the output directory as PDF
// files and per-bank bulk bundles.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/ganpare/densai/internal"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/render"
	"github.com/ganpare/densai/internal/report"
	"github.com/ganpare/densai/internal/sequence"
)

const (
	defaultLockTTL = 2 * time.Minute
	filePerm       = 0o644
	bulkLockPrefix = "export:bulk:"
)

// SystemActor runs background exports. It sees every report.
var SystemActor = &coreuser.Actor{ID: -1, Name: "system", Roles: []coreuser.Role{coreuser.RoleAdmin}}

type ReportSource interface {
	GetReportWithParties(ctx context.Context, actor *coreuser.Actor, id string) (*report.ReportWithParties, error)
	ListApprovedForBank(ctx context.Context, actor *coreuser.Actor, bankCode string, from, to time.Time) ([]*report.ReportWithParties, error)
}

type PDFRenderer interface {
	RenderForPrint(rp *report.ReportWithParties) (*render.Document, error)
	RenderBulk(title string, reports []*report.ReportWithParties) (*render.Document, error)
}

type Options struct {
	Location *time.Location
	// Locker serializes bulk exports across processes. Nil disables locking.
	Locker  *redislock.Client
	LockTTL time.Duration
}

type Service struct {
	reports ReportSource
	pdf     PDFRenderer
	html    render.Renderer
	namer   *sequence.FileNamer
	locker  *redislock.Client
	lockTTL time.Duration
	loc     *time.Location
	logger  *slog.Logger
}

func NewService(reports ReportSource, pdf PDFRenderer, html render.Renderer, namer *sequence.FileNamer, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	return &Service{
		reports: reports,
		pdf:     pdf,
		html:    html,
		namer:   namer,
		locker:  opts.Locker,
		lockTTL: opts.LockTTL,
		loc:     opts.Location,
		logger:  logger,
	}
}

// BulkLockKey is the Redis key guarding one bank's export for one day.
func BulkLockKey(bankCode string, day time.Time) string {
	return bulkLockPrefix + bankCode + ":" + day.Format("20060102")
}

// RenderPrintHTML returns the print view of an approved report.
func (s *Service) RenderPrintHTML(ctx context.Context, actor *coreuser.Actor, id string) (*render.Document, error) {
	rp, err := s.reports.GetReportWithParties(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.html.RenderForPrint(rp)
	if err != nil {
		return nil, s.renderError(err, id)
	}
	return doc, nil
}

// ExportReportPDF renders an approved report and stores it under the next
// free {bank}_{branch}_{YYYYMMDD}_NNN.pdf name for its approval day.
func (s *Service) ExportReportPDF(ctx context.Context, actor *coreuser.Actor, id string) (*File, error) {
	rp, err := s.reports.GetReportWithParties(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.pdf.RenderForPrint(rp)
	if err != nil {
		return nil, s.renderError(err, id)
	}

	day := rp.UpdatedAt
	if rp.ApprovedAt != nil {
		day = *rp.ApprovedAt
	}
	res, err := s.namer.ReserveReport(rp.BankCode, rp.BranchCode, day)
	if errors.Is(err, sequence.ErrReservedCode) {
		s.logger.Warn("report branch code clashes with bulk file names", "report_id", id, "branch_code", rp.BranchCode)
		return nil, internal.NewValidationFieldError("branch_code", "branch_code "+rp.BranchCode+" is reserved for bulk export file names", internal.ErrCodeValidationFailed)
	}
	if err != nil {
		s.logger.Error("failed to reserve pdf name", "error", err, "report_id", id)
		return nil, internal.NewInternalError("failed to reserve output file", err)
	}
	if err := s.write(res.Path, doc.Body); err != nil {
		s.release(res)
		return nil, internal.NewInternalError("failed to write pdf", err)
	}

	s.logger.Info("report pdf exported",
		"report_id", id,
		"report_number", rp.ReportNumber,
		"file", res.Name,
		"actor_id", actor.ID)

	return &File{Name: res.Name, Path: res.Path, ContentType: doc.ContentType, Size: len(doc.Body), Body: doc.Body}, nil
}

// BulkExport bundles every report of one bank approved on one local day
// into a multi-page PDF and a summary workbook sharing a file stem.
func (s *Service) BulkExport(ctx context.Context, actor *coreuser.Actor, dto BulkExportDTO) (*BulkResult, error) {
	if actor == nil || actor.ID == 0 {
		return nil, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken)
	}
	if !actor.HasAny(coreuser.RoleApprover, coreuser.RoleAdmin) {
		return nil, internal.NewForbiddenError("approver or admin role required", internal.ErrCodeRoleRequired)
	}

	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	from, err := dto.Day(s.loc)
	if err != nil {
		return nil, internal.NewValidationFieldError("date", "date must be formatted as YYYY-MM-DD", internal.ErrCodeValidationFailed)
	}
	to := from.AddDate(0, 0, 1)

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, BulkLockKey(dto.BankCode, from), s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Warn("bulk export already running", "bank_code", dto.BankCode, "date", dto.Date)
			return nil, internal.NewConflictError("a bulk export for this bank and day is already running", internal.ErrCodeExportBusy)
		}
		if err != nil {
			s.logger.Error("failed to obtain bulk export lock", "error", err, "bank_code", dto.BankCode)
			return nil, internal.NewInternalError("failed to obtain export lock", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				s.logger.Warn("failed to release bulk export lock", "error", err, "bank_code", dto.BankCode)
			}
		}()
	}

	reports, err := s.reports.ListApprovedForBank(ctx, actor, dto.BankCode, from, to)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s %s", dto.BankCode, dto.Date)
	doc, err := s.pdf.RenderBulk(title, reports)
	if err != nil {
		return nil, s.renderError(err, dto.BankCode)
	}
	workbook, err := buildWorkbook(title, reports, s.loc)
	if err != nil {
		s.logger.Error("failed to build bulk workbook", "error", err, "bank_code", dto.BankCode)
		return nil, internal.NewInternalError("failed to build workbook", err)
	}

	res, err := s.namer.ReserveBulk(dto.BankCode, from, doc.Ext)
	if err != nil {
		s.logger.Error("failed to reserve bulk name", "error", err, "bank_code", dto.BankCode)
		return nil, internal.NewInternalError("failed to reserve output file", err)
	}
	if err := s.write(res.Path, doc.Body); err != nil {
		s.release(res)
		return nil, internal.NewInternalError("failed to write bulk pdf", err)
	}
	xlsxPath := res.SiblingPath(workbookExt)
	if err := s.write(xlsxPath, workbook); err != nil {
		s.release(res)
		return nil, internal.NewInternalError("failed to write bulk workbook", err)
	}

	s.logger.Info("bulk export written",
		"bank_code", dto.BankCode,
		"date", dto.Date,
		"reports", len(reports),
		"file", res.Name,
		"actor_id", actor.ID)

	return &BulkResult{
		BankCode: dto.BankCode,
		Date:     dto.Date,
		Count:    len(reports),
		PDF:      &File{Name: res.Name, Path: res.Path, ContentType: doc.ContentType, Size: len(doc.Body), Body: doc.Body},
		Workbook: &File{Name: res.Stem + workbookExt, Path: xlsxPath, ContentType: ContentTypeXLSX, Size: len(workbook), Body: workbook},
	}, nil
}

func (s *Service) renderError(err error, ref string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error("failed to render document", "error", err, "ref", ref)
	return internal.NewInternalError("failed to render document", err)
}

func (s *Service) write(path string, body []byte) error {
	if err := os.WriteFile(path, body, filePerm); err != nil {
		s.logger.Error("failed to write export file", "error", err, "path", path)
		return err
	}
	return nil
}

func (s *Service) release(res *sequence.Reservation) {
	if err := res.Release(); err != nil {
		s.logger.Warn("failed to release reserved file", "error", err, "path", res.Path)
	}
	_ = os.Remove(res.SiblingPath(workbookExt))
}
