package http

import (
	"net/http"
	"time"

	"knowledge-hub/internal/auth"
	commonerrors "knowledge-hub/internal/common/errors"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/workspace/domain"
	"knowledge-hub/internal/workspace/repository"
)

type workspaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Handler struct {
	workspaces repository.Repository
	log        *logger.Logger
}

func NewHandler(workspaces repository.Repository, log *logger.Logger) *Handler {
	return &Handler{workspaces: workspaces, log: log}
}

// List handles GET /api/workspaces: the workspaces the caller is a member of.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	workspaces, err := h.workspaces.ListByMember(r.Context(), claims.UserID)
	if err != nil {
		commonhttp.HandleError(w, r, commonerrors.ErrStoreUnavailable.WithCause(err), h.log)
		return
	}

	out := make([]workspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, toWorkspaceResponse(ws))
	}

	commonhttp.WriteJSON(w, http.StatusOK, out)
}

func toWorkspaceResponse(ws domain.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt,
	}
}
