package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ganpare/densai/internal"
	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
	reportDatamodel "github.com/ganpare/densai/internal/core/datamodel/report"
	userDatamodel "github.com/ganpare/densai/internal/core/datamodel/user"
	"github.com/ganpare/densai/internal/report"
	"github.com/ganpare/densai/internal/sequence"
	"gorm.io/gorm"
)

// ReportRepository implements report.Repository using GORM
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ report.Repository = (*ReportRepository)(nil)

// isUniqueViolation recognizes duplicate-key errors from both drivers, with
// or without gorm's error translation enabled.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	model := report.ToDataModel(rep)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return report.ErrSequenceConflict
		}
		return err
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*report.Report, error) {
	var model reportDatamodel.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReportNotFound
		}
		return nil, err
	}
	return report.FromDataModel(&model), nil
}

func (r *ReportRepository) GetWithParties(ctx context.Context, id string) (*report.ReportWithParties, error) {
	rep, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.attachParties(ctx, rep)
}

func (r *ReportRepository) attachParties(ctx context.Context, rep *report.Report) (*report.ReportWithParties, error) {
	out := &report.ReportWithParties{Report: rep}
	db := r.db.WithContext(ctx)

	ids := []int64{rep.HandlerID}
	if rep.ApproverID != nil {
		ids = append(ids, *rep.ApproverID)
	}
	var users []userDatamodel.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		p := &report.Party{ID: u.ID, Name: u.Name, Email: u.Email}
		if u.ID == rep.HandlerID {
			out.Handler = p
		}
		if rep.ApproverID != nil && u.ID == *rep.ApproverID {
			out.Approver = p
		}
	}

	if rep.BankCode != "" {
		var fi institutionDatamodel.FinancialInstitution
		err := db.Where("code = ?", rep.BankCode).First(&fi).Error
		switch {
		case err == nil:
			out.BankName = fi.Name
			var br institutionDatamodel.Branch
			berr := db.Where("institution_id = ? AND branch_code = ?", fi.ID, rep.BranchCode).First(&br).Error
			if berr == nil {
				out.BranchName = br.Name
			} else if !errors.Is(berr, gorm.ErrRecordNotFound) {
				return nil, berr
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return out, nil
}

// UpdateDraft writes content fields conditioned on status = draft and on the
// row being unchanged since the caller read it.
func (r *ReportRepository) UpdateDraft(ctx context.Context, rep *report.Report, expectUpdatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&reportDatamodel.Report{}).
		Where("id = ? AND status = ? AND updated_at = ?", rep.ID, string(report.StatusDraft), expectUpdatedAt.UTC()).
		Updates(map[string]interface{}{
			"user_number":         rep.UserNumber,
			"bank_code":           rep.BankCode,
			"branch_code":         rep.BranchCode,
			"company_name":        rep.CompanyName,
			"contact_person_name": rep.ContactPersonName,
			"inquiry_content":     rep.InquiryContent,
			"response_content":    rep.ResponseContent,
			"escalation_required": rep.EscalationRequired,
			"escalation_reason":   rep.EscalationReason,
			"updated_at":          rep.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrChanged(ctx, rep.ID)
	}
	return nil
}

// Transition is a single conditional UPDATE. Zero affected rows means a
// concurrent writer moved or edited the report first; nothing is overwritten.
func (r *ReportRepository) Transition(ctx context.Context, id string, change report.StatusChange) error {
	updates := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": change.At.UTC(),
	}
	if change.ApproverID != nil {
		updates["approver_id"] = *change.ApproverID
	}
	if change.ApprovedAt != nil {
		updates["approved_at"] = change.ApprovedAt.UTC()
	}
	if change.RejectionReason != nil {
		updates["rejection_reason"] = *change.RejectionReason
	}
	if change.SubmittedAt != nil {
		updates["submitted_at"] = change.SubmittedAt.UTC()
	}
	if change.ClearDecision {
		updates["approver_id"] = nil
		updates["approved_at"] = nil
		updates["rejection_reason"] = nil
		updates["submitted_at"] = nil
	}

	q := r.db.WithContext(ctx).Model(&reportDatamodel.Report{}).
		Where("id = ? AND status = ?", id, string(change.From))
	if change.ExpectUpdatedAt != nil {
		q = q.Where("updated_at = ?", change.ExpectUpdatedAt.UTC())
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrChanged(ctx, id)
	}
	return nil
}

func (r *ReportRepository) missingOrChanged(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&reportDatamodel.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return internal.ErrReportNotFound
	}
	return report.ErrStatusChanged
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ReportRepository) applyFilter(q *gorm.DB, f report.Filter) *gorm.DB {
	switch f.Scope {
	case report.ScopeOwn:
		q = q.Where("handler_id = ?", f.ActorID)
	case report.ScopeReview:
		q = q.Where("(status <> ? OR handler_id = ?)", string(report.StatusDraft), f.ActorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Search != "" {
		p := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		q = q.Where(`(LOWER(report_number) LIKE ? ESCAPE '\' OR LOWER(company_name) LIKE ? ESCAPE '\' OR LOWER(contact_person_name) LIKE ? ESCAPE '\' OR LOWER(inquiry_content) LIKE ? ESCAPE '\')`, p, p, p, p)
	}
	return q
}

func (r *ReportRepository) List(ctx context.Context, f report.Filter, limit, offset int) ([]*report.Report, int64, error) {
	base := r.db.WithContext(ctx).Model(&reportDatamodel.Report{})

	var total int64
	if err := r.applyFilter(base.Session(&gorm.Session{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*reportDatamodel.Report
	q := r.applyFilter(base.Session(&gorm.Session{}), f).Order("created_at DESC").Order("report_number DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return report.FromDataModelSlice(models), total, nil
}

// MaxSequence parses numbers in Go since sequences past 999 widen and no
// longer sort lexically.
func (r *ReportRepository) MaxSequence(ctx context.Context, prefix string) (int64, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&reportDatamodel.Report{}).
		Where(`report_number LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Pluck("report_number", &numbers).Error
	if err != nil {
		return 0, err
	}
	var top int64
	for _, n := range numbers {
		if seq, ok := sequence.ParseReportSequence(n); ok && seq > top {
			top = seq
		}
	}
	return top, nil
}

func (r *ReportRepository) ListApproved(ctx context.Context, bankCode string, from, to time.Time) ([]*report.ReportWithParties, error) {
	var models []*reportDatamodel.Report
	err := r.db.WithContext(ctx).
		Where("status = ? AND bank_code = ? AND approved_at >= ? AND approved_at < ?",
			string(report.StatusApproved), bankCode, from.UTC(), to.UTC()).
		Order("branch_code ASC").
		Order("report_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*report.ReportWithParties, 0, len(models))
	for _, m := range models {
		rp, err := r.attachParties(ctx, report.FromDataModel(m))
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}
