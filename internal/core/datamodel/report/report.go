package report

import "time"

type Report struct {
	ID                 string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	ReportNumber       string     `gorm:"column:report_number;uniqueIndex;not null"`
	UserNumber         string     `gorm:"column:user_number"`
	BankCode           string     `gorm:"column:bank_code"`
	BranchCode         string     `gorm:"column:branch_code"`
	CompanyName        string     `gorm:"column:company_name"`
	ContactPersonName  string     `gorm:"column:contact_person_name"`
	InquiryContent     string     `gorm:"column:inquiry_content"`
	ResponseContent    string     `gorm:"column:response_content"`
	EscalationRequired bool       `gorm:"column:escalation_required;not null;default:false"`
	EscalationReason   *string    `gorm:"column:escalation_reason"`
	Status             string     `gorm:"column:status;not null;default:draft;index"`
	HandlerID          int64      `gorm:"column:handler_id;not null;index"`
	ApproverID         *int64     `gorm:"column:approver_id"`
	RejectionReason    *string    `gorm:"column:rejection_reason"`
	SubmittedAt        *time.Time `gorm:"column:submitted_at"`
	ApprovedAt         *time.Time `gorm:"column:approved_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;not null"`
}

func (Report) TableName() string {
	return "reports"
}
