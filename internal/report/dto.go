package report

import (
	"strings"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/common/validation"
)

const (
	maxCodeLength    = 20
	maxNameLength    = 200
	maxContentLength = 10000
)

// CreateReportDTO accepts partial data for drafts. With Submit set the report
// is validated like SubmitReport and stored directly as pending_approval.
type CreateReportDTO struct {
	UserNumber         string  `json:"user_number"`
	BankCode           string  `json:"bank_code"`
	BranchCode         string  `json:"branch_code"`
	CompanyName        string  `json:"company_name"`
	ContactPersonName  string  `json:"contact_person_name"`
	InquiryContent     string  `json:"inquiry_content"`
	ResponseContent    string  `json:"response_content"`
	EscalationRequired bool    `json:"escalation_required"`
	EscalationReason   *string `json:"escalation_reason,omitempty"`
	Submit             bool    `json:"submit"`
}

// UpdateReportDTO is a partial update; nil fields are left untouched.
type UpdateReportDTO struct {
	UserNumber         *string `json:"user_number,omitempty"`
	BankCode           *string `json:"bank_code,omitempty"`
	BranchCode         *string `json:"branch_code,omitempty"`
	CompanyName        *string `json:"company_name,omitempty"`
	ContactPersonName  *string `json:"contact_person_name,omitempty"`
	InquiryContent     *string `json:"inquiry_content,omitempty"`
	ResponseContent    *string `json:"response_content,omitempty"`
	EscalationRequired *bool   `json:"escalation_required,omitempty"`
	EscalationReason   *string `json:"escalation_reason,omitempty"`
}

func (dto UpdateReportDTO) Apply(r *Report) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&r.UserNumber, dto.UserNumber)
	set(&r.BankCode, dto.BankCode)
	set(&r.BranchCode, dto.BranchCode)
	set(&r.CompanyName, dto.CompanyName)
	set(&r.ContactPersonName, dto.ContactPersonName)
	set(&r.InquiryContent, dto.InquiryContent)
	set(&r.ResponseContent, dto.ResponseContent)
	if dto.EscalationRequired != nil {
		r.EscalationRequired = *dto.EscalationRequired
	}
	if dto.EscalationReason != nil {
		reason := *dto.EscalationReason
		r.EscalationReason = &reason
	}
	r.Normalize()
}

type SetStatusDTO struct {
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

func (dto SetStatusDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", dto.Status).Required().OneOf(string(StatusApproved), string(StatusRejected))
	v.Field("rejection_reason", dto.RejectionReason).RequiredIf(dto.Status == string(StatusRejected)).MaxLength(maxContentLength)
	return v.Validate()
}

type RejectDTO struct {
	Reason string `json:"reason"`
}

type ListQuery struct {
	Status string
	Search string
	Limit  int
	Offset int
}

type ListResult struct {
	Reports []*Report `json:"reports"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}

// validateLengths bounds field sizes for drafts and submitted reports alike.
func validateLengths(r *Report) *internal.AppError {
	v := validation.NewValidator()
	v.Field("user_number", r.UserNumber).MaxLength(maxCodeLength)
	v.Field("bank_code", r.BankCode).MaxLength(maxCodeLength)
	v.Field("branch_code", r.BranchCode).MaxLength(maxCodeLength)
	v.Field("company_name", r.CompanyName).MaxLength(maxNameLength)
	v.Field("contact_person_name", r.ContactPersonName).MaxLength(maxNameLength)
	v.Field("inquiry_content", r.InquiryContent).MaxLength(maxContentLength)
	v.Field("response_content", r.ResponseContent).MaxLength(maxContentLength)
	v.Field("escalation_reason", r.EscalationReason).MaxLength(maxContentLength)
	return v.Validate()
}

// ValidateForSubmit checks the completeness rules a report must satisfy to
// leave draft. It returns every failing field at once.
func ValidateForSubmit(r *Report) *internal.AppError {
	v := validation.NewValidator()
	v.Field("user_number", r.UserNumber).Required().MaxLength(maxCodeLength)
	v.Field("bank_code", r.BankCode).Required().MaxLength(maxCodeLength)
	v.Field("branch_code", r.BranchCode).Required().MaxLength(maxCodeLength)
	v.Field("company_name", r.CompanyName).Required().MaxLength(maxNameLength)
	v.Field("contact_person_name", r.ContactPersonName).Required().MaxLength(maxNameLength)
	v.Field("inquiry_content", r.InquiryContent).Required().MaxLength(maxContentLength)
	v.Field("response_content", r.ResponseContent).Required().MaxLength(maxContentLength)
	v.Field("escalation_reason", r.EscalationReason).RequiredIf(r.EscalationRequired).MaxLength(maxContentLength)
	return v.Validate()
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
