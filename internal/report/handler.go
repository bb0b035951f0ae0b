package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ganpare/densai/internal/auth"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateReport(ctx context.Context, actor *coreuser.Actor, dto CreateReportDTO) (*Report, error)
	GetReportWithParties(ctx context.Context, actor *coreuser.Actor, id string) (*ReportWithParties, error)
	ListReports(ctx context.Context, actor *coreuser.Actor, q ListQuery) (*ListResult, error)
	UpdateReportDraft(ctx context.Context, actor *coreuser.Actor, id string, dto UpdateReportDTO) (*Report, error)
	SubmitReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error)
	SetReportStatus(ctx context.Context, actor *coreuser.Actor, id string, dto SetStatusDTO) (*Report, error)
	ApproveReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error)
	RejectReport(ctx context.Context, actor *coreuser.Actor, id, reason string) (*Report, error)
	ReopenReport(ctx context.Context, actor *coreuser.Actor, id string) (*Report, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Error(op+": invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CreateReport")
	if !ok {
		return
	}

	var dto CreateReportDTO
	if !h.decode(w, r, "CreateReport", &dto) {
		return
	}

	rep, err := h.Service.CreateReport(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateReport: report created",
		"report_id", rep.ID,
		"report_number", rep.ReportNumber,
		"user_id", actor.ID,
		"status", rep.Status)

	h.WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListReports")
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	q := ListQuery{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	}

	result, err := h.Service.ListReports(r.Context(), actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetReport")
	if !ok {
		return
	}

	rep, err := h.Service.GetReportWithParties(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "UpdateReport")
	if !ok {
		return
	}

	var dto UpdateReportDTO
	if !h.decode(w, r, "UpdateReport", &dto) {
		return
	}

	rep, err := h.Service.UpdateReportDraft(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "SubmitReport")
	if !ok {
		return
	}

	rep, err := h.Service.SubmitReport(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) SetReportStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "SetReportStatus")
	if !ok {
		return
	}

	var dto SetStatusDTO
	if !h.decode(w, r, "SetReportStatus", &dto) {
		return
	}

	rep, err := h.Service.SetReportStatus(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SetReportStatus: status updated",
		"report_id", rep.ID,
		"status", rep.Status,
		"approver_id", actor.ID)

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ApproveReport")
	if !ok {
		return
	}

	rep, err := h.Service.ApproveReport(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "RejectReport")
	if !ok {
		return
	}

	var dto RejectDTO
	if !h.decode(w, r, "RejectReport", &dto) {
		return
	}

	rep, err := h.Service.RejectReport(r.Context(), actor, chi.URLParam(r, "id"), dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) ReopenReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ReopenReport")
	if !ok {
		return
	}

	rep, err := h.Service.ReopenReport(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}
