package http

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"knowledge-hub/internal/account/domain"
	"knowledge-hub/internal/account/service"
	"knowledge-hub/internal/auth"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Email string `json:"email" validate:"required,email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Admin      bool      `json:"is_admin"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Handler struct {
	accounts *service.AccountService
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(accounts *service.AccountService, log *logger.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		validate: validator.New(),
		log:      log,
	}
}

// Public returns the unauthenticated routes (register, login).
func (h *Handler) Public() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", commonhttp.RequireMethod(http.MethodPost)(h.register))
	mux.HandleFunc("/api/login", commonhttp.RequireMethod(http.MethodPost)(h.login))
	return mux
}

// Profile returns the authenticated /api/user routes.
func (h *Handler) Profile() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.getUser(w, r)
		case http.MethodPut:
			h.updateUser(w, r)
		default:
			commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid registration payload")
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	token, err := h.accounts.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("profile update failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid profile payload")
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Notifications handles GET /api/notifications. Notification delivery is not
// built yet; the endpoint exists so clients can poll it without erroring.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	commonhttp.WriteJSON(w, http.StatusOK, []struct{}{})
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:         string(user.ID),
		Name:       user.Name,
		Email:      user.Email,
		Admin:      user.Admin,
		LastActive: user.LastActive,
		CreatedAt:  user.CreatedAt,
	}
}
