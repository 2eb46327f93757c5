package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"knowledge-hub/internal/auth"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/search/domain"
	"knowledge-hub/internal/search/service"
)

type processURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type entryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type searchResponse struct {
	Entries     []entryResponse `json:"entries"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

type Handler struct {
	search   *service.SearchService
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(search *service.SearchService, log *logger.Logger) *Handler {
	return &Handler{
		search:   search,
		validate: validator.New(),
		log:      log,
	}
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	result, err := h.search.Search(r.Context(), query, page, limit)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	entries := make([]entryResponse, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, toEntryResponse(entry))
	}

	commonhttp.WriteJSON(w, http.StatusOK, searchResponse{
		Entries:     entries,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
	})
}

// ProcessURL handles POST /api/process-url.
func (h *Handler) ProcessURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req processURLRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("process-url failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid url")
		return
	}

	entry, err := h.search.IngestURL(r.Context(), req.URL, claims.UserID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func toEntryResponse(entry domain.Entry) entryResponse {
	return entryResponse{
		ID:        entry.ID,
		Title:     entry.Title,
		Content:   entry.Content,
		URL:       entry.URL,
		CreatedBy: entry.CreatedBy,
		CreatedAt: entry.CreatedAt,
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
