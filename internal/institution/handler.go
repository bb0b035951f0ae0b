package institution

import (
	"context"
	"net/http"

	"github.com/ganpare/densai/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListInstitutions(ctx context.Context) ([]*Institution, error)
	ListBranches(ctx context.Context, code string) (*Institution, []*Branch, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetInstitutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.Service.ListInstitutions(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, InstitutionsResponse{
		Institutions: institutions,
	})
}

func (h *Handler) GetBranches(w http.ResponseWriter, r *http.Request) {
	inst, branches, err := h.Service.ListBranches(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BranchesResponse{
		Institution: inst,
		Branches:    branches,
	})
}
