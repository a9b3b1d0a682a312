package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/burhanit11/youtubechannel-backend/pkg/httputil"
	"github.com/burhanit11/youtubechannel-backend/pkg/middleware"
	"github.com/burhanit11/youtubechannel-backend/pkg/validator"
	"github.com/burhanit11/youtubechannel-backend/internal/auth"
	"github.com/burhanit11/youtubechannel-backend/internal/domain"
	"github.com/burhanit11/youtubechannel-backend/internal/media"
	"github.com/burhanit11/youtubechannel-backend/internal/service"
)

// Session cookie names. Both tokens are also returned in the response body
// for clients that cannot use cookies.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// maxUploadBytes bounds the multipart registration form (avatar plus cover).
const maxUploadBytes = 20 << 20

// AuthHandler handles HTTP requests for session endpoints.
type AuthHandler struct {
	service *service.UserService
	tokens  *auth.TokenManager
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.UserService, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, tokens: tokens, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login. Either email or username
// identifies the account.
type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"omitempty,min=1,max=100"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the JSON request body for token refresh. The body
// is optional; the refreshToken cookie is preferred.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// --- Response types ---

// SessionResponse wraps user data with the minted token pair.
type SessionResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// --- Cookie helpers ---

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, tokens *domain.TokenPair) {
	setTokenCookie(w, accessTokenCookie, tokens.AccessToken, h.tokens.AccessExpiry())
	setTokenCookie(w, refreshTokenCookie, tokens.RefreshToken, h.tokens.RefreshExpiry())
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	clearTokenCookie(w, accessTokenCookie)
	clearTokenCookie(w, refreshTokenCookie)
}

func setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- Handlers ---

// Register handles POST /api/v1/users/register. The request is a multipart
// form carrying the account fields plus an avatar file and an optional
// coverImage file.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeBadRequestBody(w, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	avatarPath, err := stageFormFile(r, "avatar")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "avatar file is required"},
		})
		return
	}

	// Missing cover image is fine; registration proceeds without one.
	coverPath, _ := stageFormFile(r, "coverImage")
	defer media.RemoveStaged(avatarPath, coverPath)

	input := service.RegisterInput{
		Username:       r.FormValue("username"),
		Email:          r.FormValue("email"),
		FullName:       r.FormValue("fullName"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// stageFormFile copies the named multipart file to local disk and returns
// the staged path.
func stageFormFile(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	return media.StageFile(file, header)
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w, err)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}

	user, tokens, err := h.service.Login(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SessionResponse{
			User:         user,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		},
	})
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.clearSessionCookies(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// RefreshToken handles POST /api/v1/users/refresh-token. The refresh token
// is read from the refreshToken cookie, falling back to the JSON body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}

	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w, err)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// The stored refresh token was revoked; drop the session cookies too.
	h.clearSessionCookies(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed successfully"},
	})
}
