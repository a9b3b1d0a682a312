package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/burhanit11/youtubechannel-backend/pkg/httputil"
	"github.com/burhanit11/youtubechannel-backend/pkg/middleware"
	"github.com/burhanit11/youtubechannel-backend/pkg/pagination"
	"github.com/burhanit11/youtubechannel-backend/pkg/validator"
	"github.com/burhanit11/youtubechannel-backend/internal/domain"
	"github.com/burhanit11/youtubechannel-backend/internal/service"
)

// UserHandler handles HTTP requests for account, channel, and watch
// history endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// UpdateAccountRequest is the JSON request body for updating account details.
// Both fields are required on every call.
type UpdateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// --- Handlers ---

// GetCurrentUser handles GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// UpdateAccount handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w, err)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	}

	user, err := h.service.UpdateAccount(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// GetChannel handles GET /api/v1/users/c/{username}. The route allows
// anonymous viewers; a logged-in viewer additionally gets their
// subscription flag.
func (h *UserHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewerID := middleware.UserIDFromContext(r.Context())

	profile, err := h.service.GetChannelProfile(r.Context(), username, viewerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// Subscribe handles POST /api/v1/users/c/{username}/subscription
func (h *UserHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.service.Subscribe(r.Context(), userID, username); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"channel": username, "status": "subscribed"},
	})
}

// Unsubscribe handles DELETE /api/v1/users/c/{username}/subscription
func (h *UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.service.Unsubscribe(r.Context(), userID, username); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"channel": username, "status": "unsubscribed"},
	})
}

// GetWatchHistory handles GET /api/v1/users/history
func (h *UserHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	params := pagination.FromRequest(r)
	entries, total, err := h.service.GetWatchHistory(r.Context(), userID, params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result := pagination.NewResult[domain.WatchEntry](entries, int(total), params)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// AddWatchEntry handles POST /api/v1/users/history/{videoId}
func (h *UserHandler) AddWatchEntry(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if err := h.service.AddWatchEntry(r.Context(), userID, videoID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: map[string]string{"videoId": videoID, "status": "recorded"},
	})
}

// --- Shared response helpers ---

func writeUnauthenticated(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
	})
}

func writeBadRequestBody(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
	})
}
