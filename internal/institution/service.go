package institution

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ganpare/densai/internal"
	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*institutionDatamodel.FinancialInstitution, error)
	// GetByCode returns internal.ErrInstitutionNotFound for unknown codes.
	GetByCode(ctx context.Context, code string) (*institutionDatamodel.FinancialInstitution, error)
	GetBranches(ctx context.Context, institutionID int64) ([]*institutionDatamodel.Branch, error)
	// GetBranch returns internal.ErrBranchNotFound for unknown codes.
	GetBranch(ctx context.Context, institutionID int64, branchCode string) (*institutionDatamodel.Branch, error)
	Create(ctx context.Context, fi *institutionDatamodel.FinancialInstitution) error
	CreateBranch(ctx context.Context, b *institutionDatamodel.Branch) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ListInstitutions(ctx context.Context) ([]*Institution, error) {
	data, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get institutions from repository", "error", err)
		return nil, internal.NewInternalError("failed to list institutions", err)
	}

	out := make([]*Institution, 0, len(data))
	for _, d := range data {
		out = append(out, FromDataModel(d))
	}
	return out, nil
}

func (s *Service) GetInstitution(ctx context.Context, code string) (*Institution, error) {
	fi, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, internal.ErrInstitutionNotFound) {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load institution", err)
	}
	return FromDataModel(fi), nil
}

// ListBranches returns the branches of the institution identified by code.
func (s *Service) ListBranches(ctx context.Context, code string) (*Institution, []*Branch, error) {
	inst, err := s.GetInstitution(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.repo.GetBranches(ctx, inst.ID)
	if err != nil {
		s.logger.Error("failed to get branches from repository", "error", err, "institution", inst.Code)
		return nil, nil, internal.NewInternalError("failed to list branches", err)
	}

	branches := make([]*Branch, 0, len(data))
	for _, d := range data {
		branches = append(branches, BranchFromDataModel(d))
	}
	return inst, branches, nil
}

// ResolveBranch reports whether the bank code and the branch code under it
// are known. An unknown bank implies an unknown branch.
func (s *Service) ResolveBranch(ctx context.Context, bankCode, branchCode string) (bankKnown, branchKnown bool, err error) {
	fi, err := s.repo.GetByCode(ctx, NormalizeCode(bankCode))
	if err != nil {
		if errors.Is(err, internal.ErrInstitutionNotFound) {
			return false, false, nil
		}
		return false, false, err
	}

	if _, err := s.repo.GetBranch(ctx, fi.ID, NormalizeCode(branchCode)); err != nil {
		if errors.Is(err, internal.ErrBranchNotFound) {
			return true, false, nil
		}
		return true, false, err
	}
	return true, true, nil
}

// Register creates an institution together with its branches, or adds the
// missing branches to an existing one.
func (s *Service) Register(ctx context.Context, inst *Institution, branches ...*Branch) (*Institution, error) {
	fi, err := s.repo.GetByCode(ctx, inst.Code)
	switch {
	case err == nil:
	case errors.Is(err, internal.ErrInstitutionNotFound):
		fi = ToDataModel(inst)
		if err := s.repo.Create(ctx, fi); err != nil {
			return nil, internal.NewInternalError("failed to create institution", err)
		}
		s.logger.Info("institution created", "code", fi.Code)
	default:
		return nil, internal.NewInternalError("failed to load institution", err)
	}

	for _, b := range branches {
		_, err := s.repo.GetBranch(ctx, fi.ID, b.BranchCode)
		if err == nil {
			continue
		}
		if !errors.Is(err, internal.ErrBranchNotFound) {
			return nil, internal.NewInternalError("failed to load branch", err)
		}
		b.InstitutionID = fi.ID
		if err := s.repo.CreateBranch(ctx, BranchToDataModel(b)); err != nil {
			return nil, internal.NewInternalError("failed to create branch", err)
		}
	}
	return FromDataModel(fi), nil
}
