package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/burhanit11/youtubechannel-backend/pkg/health"
	"github.com/burhanit11/youtubechannel-backend/pkg/middleware"
	"github.com/burhanit11/youtubechannel-backend/internal/auth"
	"github.com/burhanit11/youtubechannel-backend/internal/repository"
	"github.com/burhanit11/youtubechannel-backend/internal/service"
)

// channelPageMaxAge is the browser cache lifetime for channel pages. It
// matches the server-side aggregate cache so staleness stays bounded.
const channelPageMaxAge = 60

// NewRouter creates a chi router with all user service routes registered.
func NewRouter(
	userService *service.UserService,
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("user"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("user"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(userService, tokens, logger)
	userHandler := NewUserHandler(userService, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Public session endpoints. Registration is a multipart form, so the
		// JSON content type gate only applies to login and refresh.
		r.Post("/register", authHandler.Register)
		r.With(ContentTypeJSON).Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.RefreshToken)

		// Channel pages are public but personalize for a logged-in viewer.
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthenticate(tokens, userRepo))
			r.With(middleware.CacheControl(channelPageMaxAge)).Get("/c/{username}", userHandler.GetChannel)
		})

		// Everything below requires a valid session.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(tokens, userRepo, logger))

			r.Post("/logout", authHandler.Logout)
			r.With(ContentTypeJSON).Post("/change-password", authHandler.ChangePassword)

			r.Get("/me", userHandler.GetCurrentUser)
			r.With(ContentTypeJSON).Patch("/me", userHandler.UpdateAccount)

			r.Get("/history", userHandler.GetWatchHistory)
			r.Post("/history/{videoId}", userHandler.AddWatchEntry)

			r.Post("/c/{username}/subscription", userHandler.Subscribe)
			r.Delete("/c/{username}/subscription", userHandler.Unsubscribe)
		})
	})

	return r
}
