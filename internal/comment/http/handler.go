package http

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"knowledge-hub/internal/auth"
	"knowledge-hub/internal/comment/domain"
	"knowledge-hub/internal/comment/service"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
)

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type commentResponse struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type Handler struct {
	comments *service.CommentService
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(comments *service.CommentService, log *logger.Logger) *Handler {
	return &Handler{
		comments: comments,
		validate: validator.New(),
		log:      log,
	}
}

// List handles GET /api/workspaces/{id}/comments in ascending commit order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	workspaceID := r.PathValue("id")
	comments, err := h.comments.ListByWorkspace(r.Context(), workspaceID, claims.UserID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}

	commonhttp.WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/workspaces/{id}/comments. Posting needs only
// store-level membership; the author does not have to hold an open websocket
// session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createCommentRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("comment create failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid comment payload")
		return
	}

	workspaceID := r.PathValue("id")
	comment, err := h.comments.Create(r.Context(), workspaceID, claims.UserID, req.Content)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		AuthorID:    c.AuthorID,
		AuthorName:  c.AuthorName,
		Content:     c.Content,
		CreatedAt:   c.CreatedAt,
	}
}
