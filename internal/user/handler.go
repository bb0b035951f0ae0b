package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ganpare/densai/internal/auth"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, actor *coreuser.Actor, dto UpdateProfileDTO) (*User, error)
	ListUsers(ctx context.Context, actor *coreuser.Actor, limit, offset int) (*UsersResponse, error)
	CreateUser(ctx context.Context, actor *coreuser.Actor, dto CreateUserDTO) (*User, error)
	UpdateRoles(ctx context.Context, actor *coreuser.Actor, id int64, dto UpdateRolesDTO) (*User, error)
	Deactivate(ctx context.Context, actor *coreuser.Actor, id int64) (*User, error)
	DeleteUser(ctx context.Context, actor *coreuser.Actor, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request, op string) (*coreuser.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error(op + ": actor not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return actor, true
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetCurrentUser")
	if !ok {
		return
	}

	u, err := h.Service.GetByID(r.Context(), actor.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// UpdateCurrentUser handles PATCH /users/me
func (h *Handler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UpdateCurrentUser")
	if !ok {
		return
	}

	var dto UpdateProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListUsers")
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	resp, err := h.Service.ListUsers(r.Context(), actor, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CreateUser")
	if !ok {
		return
	}

	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.CreateUser(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) UpdateUserRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UpdateUserRoles")
	if !ok {
		return
	}
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var dto UpdateRolesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.UpdateRoles(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DeactivateUser")
	if !ok {
		return
	}
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.Service.Deactivate(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DeleteUser")
	if !ok {
		return
	}
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteUser(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
