package statistics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ganpare/densai/internal/transport"
)

type ServiceAPI interface {
	GetStatistics(ctx context.Context) (*Statistics, error)
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

// GetStatistics handles GET /statistics
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetStatistics(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}
