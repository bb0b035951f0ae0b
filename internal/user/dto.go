package user

import (
	"fmt"
	"strings"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/common/validation"
	coreuser "github.com/ganpare/densai/internal/core/user"
)

const (
	maxNameLength     = 100
	minPasswordLength = 8
)

type UpdateProfileDTO struct {
	Name string `json:"name"`
}

func (d UpdateProfileDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(maxNameLength)
	return v.Validate()
}

type CreateUserDTO struct {
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Password      string   `json:"password"`
	Roles         []string `json:"roles"`
	ApprovalLevel *int     `json:"approval_level,omitempty"`
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("name", d.Name).Required().MaxLength(maxNameLength)
	v.Field("password", d.Password).Required().MinLength(minPasswordLength)
	v.Field("roles", d.Roles).Custom(validateRoles)
	v.Field("approval_level", d.ApprovalLevel).Custom(validateApprovalLevel)
	return v.Validate()
}

type UpdateRolesDTO struct {
	Roles         []string `json:"roles"`
	ApprovalLevel *int     `json:"approval_level,omitempty"`
}

func (d UpdateRolesDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("roles", d.Roles).Custom(validateRoles)
	v.Field("approval_level", d.ApprovalLevel).Custom(validateApprovalLevel)
	return v.Validate()
}

type UsersResponse struct {
	Users  []*User `json:"users"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// ParseRoles converts validated role names into the canonical role set.
func ParseRoles(names []string) []coreuser.Role {
	roles := make([]coreuser.Role, 0, len(names))
	for _, n := range names {
		if r, ok := coreuser.ParseRole(strings.TrimSpace(n)); ok {
			roles = append(roles, r)
		}
	}
	return coreuser.NormalizeRoles(roles)
}

func validateRoles(value interface{}) *internal.AppError {
	names, _ := value.([]string)
	if len(names) == 0 {
		return internal.NewValidationFieldError("roles", "at least one role is required", internal.ErrCodeRequiredField)
	}
	for _, n := range names {
		if _, ok := coreuser.ParseRole(strings.TrimSpace(n)); !ok {
			return internal.NewValidationFieldError("roles", fmt.Sprintf("unknown role %q", n), internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

func validateApprovalLevel(value interface{}) *internal.AppError {
	level, _ := value.(*int)
	if level != nil && *level < 1 {
		return internal.NewValidationFieldError("approval_level", "approval_level must be at least 1", internal.ErrCodeValidationFailed)
	}
	return nil
}
