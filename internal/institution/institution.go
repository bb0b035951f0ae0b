package institution

import (
	"strings"
	"time"

	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
)

type Institution struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Branch struct {
	ID            int64  `json:"id"`
	InstitutionID int64  `json:"institution_id"`
	BranchCode    string `json:"branch_code"`
	Name          string `json:"name"`
}

// NormalizeCode trims codes the way they are stored.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func NewInstitution(code, name string) *Institution {
	return &Institution{
		Code:      NormalizeCode(code),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now(),
	}
}

func ToDataModel(i *Institution) *institutionDatamodel.FinancialInstitution {
	return &institutionDatamodel.FinancialInstitution{
		ID:        i.ID,
		Code:      i.Code,
		Name:      i.Name,
		CreatedAt: i.CreatedAt,
	}
}

func FromDataModel(i *institutionDatamodel.FinancialInstitution) *Institution {
	return &Institution{
		ID:        i.ID,
		Code:      i.Code,
		Name:      i.Name,
		CreatedAt: i.CreatedAt,
	}
}

func BranchToDataModel(b *Branch) *institutionDatamodel.Branch {
	return &institutionDatamodel.Branch{
		ID:            b.ID,
		InstitutionID: b.InstitutionID,
		BranchCode:    b.BranchCode,
		Name:          b.Name,
	}
}

func BranchFromDataModel(b *institutionDatamodel.Branch) *Branch {
	return &Branch{
		ID:            b.ID,
		InstitutionID: b.InstitutionID,
		BranchCode:    b.BranchCode,
		Name:          b.Name,
	}
}
