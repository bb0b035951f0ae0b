package user

import "time"

// Role is a capability tag. A user may hold several at once.
type Role string

const (
	RoleHandler  Role = "handler"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

var AllRoles = []Role{RoleHandler, RoleApprover, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleHandler, RoleApprover, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

type User struct {
	ID            int64
	Email         string
	Name          string
	PasswordHash  string
	Roles         []Role
	ApprovalLevel *int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) Actor() *Actor {
	return &Actor{ID: u.ID, Name: u.Name, Email: u.Email, Roles: append([]Role(nil), u.Roles...)}
}

// Actor is the authenticated caller of an operation. Services receive it
// explicitly instead of reading ambient session state.
type Actor struct {
	ID    int64
	Name  string
	Email string
	Roles []Role
}

// Has tests set membership, never equality.
func (a *Actor) Has(role Role) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Actor) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if a.Has(r) {
			return true
		}
	}
	return false
}

func (a *Actor) IsAdmin() bool {
	return a.Has(RoleAdmin)
}

// CanApprove reports whether the actor may decide pending reports. Admin
// alone does not grant it.
func (a *Actor) CanApprove() bool {
	return a.Has(RoleApprover)
}

func NormalizeRoles(roles []Role) []Role {
	seen := make(map[Role]bool, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range AllRoles {
		for _, in := range roles {
			if in == r && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
