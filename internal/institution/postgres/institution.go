package postgres

import (
	"context"
	"errors"

	"github.com/ganpare/densai/internal"
	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
	"github.com/ganpare/densai/internal/institution"
	"gorm.io/gorm"
)

type InstitutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) institution.RepositoryAPI {
	return &InstitutionRepository{db: db}
}

func (r *InstitutionRepository) GetAll(ctx context.Context) ([]*institutionDatamodel.FinancialInstitution, error) {
	var institutions []*institutionDatamodel.FinancialInstitution
	err := r.db.WithContext(ctx).Order("code ASC").Find(&institutions).Error
	return institutions, err
}

func (r *InstitutionRepository) GetByCode(ctx context.Context, code string) (*institutionDatamodel.FinancialInstitution, error) {
	var fi institutionDatamodel.FinancialInstitution
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&fi).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInstitutionNotFound
		}
		return nil, err
	}
	return &fi, nil
}

func (r *InstitutionRepository) GetBranches(ctx context.Context, institutionID int64) ([]*institutionDatamodel.Branch, error) {
	var branches []*institutionDatamodel.Branch
	err := r.db.WithContext(ctx).Where("institution_id = ?", institutionID).Order("branch_code ASC").Find(&branches).Error
	return branches, err
}

func (r *InstitutionRepository) GetBranch(ctx context.Context, institutionID int64, branchCode string) (*institutionDatamodel.Branch, error) {
	var b institutionDatamodel.Branch
	err := r.db.WithContext(ctx).Where("institution_id = ? AND branch_code = ?", institutionID, branchCode).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrBranchNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *InstitutionRepository) Create(ctx context.Context, fi *institutionDatamodel.FinancialInstitution) error {
	return r.db.WithContext(ctx).Create(fi).Error
}

func (r *InstitutionRepository) CreateBranch(ctx context.Context, b *institutionDatamodel.Branch) error {
	return r.db.WithContext(ctx).Create(b).Error
}
