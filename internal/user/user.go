package user

import (
	"strings"
	"time"

	userDatamodel "github.com/ganpare/densai/internal/core/datamodel/user"
	coreuser "github.com/ganpare/densai/internal/core/user"
)

type User struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	PasswordHash  string          `json:"-"`
	Roles         []coreuser.Role `json:"roles"`
	ApprovalLevel *int            `json:"approval_level,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (u *User) HasRole(role coreuser.Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(u *User) *userDatamodel.User {
	m := &userDatamodel.User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		ApprovalLevel: u.ApprovalLevel,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	for _, r := range u.Roles {
		m.Roles = append(m.Roles, userDatamodel.UserRole{UserID: u.ID, Role: string(r)})
	}
	return m
}

func FromDataModel(u *userDatamodel.User) *User {
	roles := make([]coreuser.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		if role, ok := coreuser.ParseRole(r.Role); ok {
			roles = append(roles, role)
		}
	}
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Roles:         coreuser.NormalizeRoles(roles),
		ApprovalLevel: u.ApprovalLevel,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func FromDataModelSlice(models []*userDatamodel.User) []*User {
	out := make([]*User, 0, len(models))
	for _, m := range models {
		out = append(out, FromDataModel(m))
	}
	return out
}
