package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ganpare/densai/internal"
	coreuser "github.com/ganpare/densai/internal/core/user"
)

// ErrEmailTaken is returned by Repository.Create on a duplicate email.
var ErrEmailTaken = internal.NewConflictError("email is already registered", internal.ErrCodeEmailTaken)

type Repository interface {
	// GetByID returns internal.ErrUserNotFound for unknown ids.
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int64, error)
	Create(ctx context.Context, u *User) error
	UpdateName(ctx context.Context, id int64, name string, at time.Time) error
	ReplaceRoles(ctx context.Context, id int64, roles []coreuser.Role, approvalLevel *int, grantedBy int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
	Delete(ctx context.Context, id int64) error
	// CountReportReferences counts reports naming the user as handler or approver.
	CountReportReferences(ctx context.Context, id int64) (int64, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

func requireAdmin(actor *coreuser.Actor) error {
	if actor == nil || actor.ID == 0 {
		return internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken)
	}
	if !actor.IsAdmin() {
		return internal.NewForbiddenError("admin role required", internal.ErrCodeRoleRequired)
	}
	return nil
}

func (s *Service) wrap(err error, op string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error("user repository failure", "op", op, "error", err)
	return internal.NewInternalError("failed to "+op, err)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "get user")
	}
	return u, nil
}

// UpdateProfile lets any user change their own display name.
func (s *Service) UpdateProfile(ctx context.Context, actor *coreuser.Actor, dto UpdateProfileDTO) (*User, error) {
	if actor == nil {
		return nil, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken)
	}
	dto.Name = strings.TrimSpace(dto.Name)
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}
	if err := s.repo.UpdateName(ctx, actor.ID, dto.Name, s.now()); err != nil {
		return nil, s.wrap(err, "update profile")
	}
	return s.GetByID(ctx, actor.ID)
}

func (s *Service) ListUsers(ctx context.Context, actor *coreuser.Actor, limit, offset int) (*UsersResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, s.wrap(err, "list users")
	}
	return &UsersResponse{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) CreateUser(ctx context.Context, actor *coreuser.Actor, dto CreateUserDTO) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	dto.Email = NormalizeEmail(dto.Email)
	dto.Name = strings.TrimSpace(dto.Name)
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	u := &User{
		Email:         dto.Email,
		Name:          dto.Name,
		PasswordHash:  hash,
		Roles:         ParseRoles(dto.Roles),
		ApprovalLevel: dto.ApprovalLevel,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, s.wrap(err, "create user")
	}

	s.logger.Info("user created", "user_id", u.ID, "roles", u.Roles, "created_by", actor.ID)
	return u, nil
}

// UpdateRoles replaces the role set and approval level of a user.
func (s *Service) UpdateRoles(ctx context.Context, actor *coreuser.Actor, id int64, dto UpdateRolesDTO) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}
	roles := ParseRoles(dto.Roles)
	if id == actor.ID && !containsRole(roles, coreuser.RoleAdmin) {
		return nil, internal.NewForbiddenError("admins cannot remove their own admin role", internal.ErrCodeForbidden)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, s.wrap(err, "load user")
	}
	if err := s.repo.ReplaceRoles(ctx, id, roles, dto.ApprovalLevel, actor.ID, s.now()); err != nil {
		return nil, s.wrap(err, "update roles")
	}

	s.logger.Info("user roles updated", "user_id", id, "roles", roles, "updated_by", actor.ID)
	return s.GetByID(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, actor *coreuser.Actor, id int64) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, internal.NewForbiddenError("admins cannot deactivate themselves", internal.ErrCodeForbidden)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, s.wrap(err, "load user")
	}
	if err := s.repo.SetActive(ctx, id, false, s.now()); err != nil {
		return nil, s.wrap(err, "deactivate user")
	}

	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", actor.ID)
	return s.GetByID(ctx, id)
}

// DeleteUser removes a user that no report refers to. Referenced users can
// only be deactivated.
func (s *Service) DeleteUser(ctx context.Context, actor *coreuser.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return internal.NewForbiddenError("admins cannot delete themselves", internal.ErrCodeForbidden)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return s.wrap(err, "load user")
	}

	refs, err := s.repo.CountReportReferences(ctx, id)
	if err != nil {
		return s.wrap(err, "count report references")
	}
	if refs > 0 {
		return internal.NewConflictError("user is referenced by reports; deactivate instead", internal.ErrCodeUserReferenced)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return err
		}
		return s.wrap(err, "delete user")
	}
	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor.ID)
	return nil
}

func containsRole(roles []coreuser.Role, role coreuser.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
