package http

import (
	"net/http"

	"knowledge-hub/internal/admin/service"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
)

type metricsResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalEntries int64 `json:"totalEntries"`
	ActiveUsers  int64 `json:"activeUsers"`
}

type Handler struct {
	admin *service.AdminService
	log   *logger.Logger
}

func NewHandler(admin *service.AdminService, log *logger.Logger) *Handler {
	return &Handler{admin: admin, log: log}
}

// Metrics handles GET /api/admin/metrics. The admin claim is enforced by
// middleware before this runs.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.admin.Metrics(r.Context())
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, metricsResponse{
		TotalUsers:   m.TotalUsers,
		TotalEntries: m.TotalEntries,
		ActiveUsers:  m.ActiveUsers,
	})
}
