package auth

import (
	"log/slog"
	"net/http"

	"github.com/ganpare/densai/internal"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	base := transport.NewBaseHandler(logger)
	return &RBACAuthorization{
		BaseHandler: base,
		logger:      base.Logger,
	}
}

// RequireAnyRole lets the request through when the actor holds at least one
// of roles.
func (ra *RBACAuthorization) RequireAnyRole(roles ...coreuser.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: actor not found in context")
				ra.HandleServiceError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
				return
			}

			if !actor.HasAny(roles...) {
				ra.logger.WarnContext(r.Context(), "access denied: missing role",
					"user_id", actor.ID,
					"required_roles", roles,
					"user_roles", actor.Roles)
				ra.HandleServiceError(w, internal.NewForbiddenError("insufficient role", internal.ErrCodeRoleRequired))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireApprover() func(http.Handler) http.Handler {
	return ra.RequireAnyRole(coreuser.RoleApprover)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireAnyRole(coreuser.RoleAdmin)
}

func (ra *RBACAuthorization) RequireApproverOrAdmin() func(http.Handler) http.Handler {
	return ra.RequireAnyRole(coreuser.RoleApprover, coreuser.RoleAdmin)
}
