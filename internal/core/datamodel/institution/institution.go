package institution

import "time"

type FinancialInstitution struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (FinancialInstitution) TableName() string {
	return "financial_institutions"
}

type Branch struct {
	ID            int64     `gorm:"primaryKey"`
	InstitutionID int64     `gorm:"column:institution_id;not null;uniqueIndex:idx_branch_institution_code"`
	BranchCode    string    `gorm:"column:branch_code;not null;uniqueIndex:idx_branch_institution_code"`
	Name          string    `gorm:"column:name;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Branch) TableName() string {
	return "branches"
}
