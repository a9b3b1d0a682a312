package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/burhanit11/youtubechannel-backend/pkg/errors"
	"github.com/burhanit11/youtubechannel-backend/pkg/httputil"
	"github.com/burhanit11/youtubechannel-backend/pkg/middleware"
	"github.com/burhanit11/youtubechannel-backend/internal/auth"
	"github.com/burhanit11/youtubechannel-backend/internal/repository"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// accessTokenFromRequest extracts the access token from the accessToken
// cookie, falling back to an Authorization bearer header. The cookie wins
// when both are present.
func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// Authenticate gates a route group behind a valid access token. The token's
// subject must resolve to an existing account; the account ID is then placed
// on the request context.
func Authenticate(tokens *auth.TokenManager, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessTokenFromRequest(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("unauthorized request"), logger)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.InvalidToken("invalid access token"), logger)
				return
			}

			// A token minted for a since-deleted account is still invalid.
			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					httputil.WriteError(w, r, apperrors.InvalidToken("invalid access token"), logger)
					return
				}
				httputil.WriteError(w, r, err, logger)
				return
			}

			ctx := middleware.SetUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate resolves the caller's identity when a valid access
// token is presented but lets anonymous requests through. Used on public
// pages that vary by viewer.
func OptionalAuthenticate(tokens *auth.TokenManager, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessTokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := middleware.SetUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers.
// In development mode (or when AllowedOrigins contains "*"), a wildcard origin is used.
// In non-development modes, only the explicitly listed origins are allowed and the
// request Origin header is validated against the list.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	// Build a lookup set for fast origin matching.
	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowWildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
