package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/lorrc/case-event-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/case-event-hub/internal/auth"
)

// RouterConfig wires the handlers and the security settings of the API.
// A nil rate limiter disables limiting for its routes.
type RouterConfig struct {
	Logger                 *slog.Logger
	TokenManager           *auth.TokenManager
	NotificationSecretHash string
	CORSAllowedOrigins     []string
	WebhookRateLimiter     *mw.RateLimiter
	APIRateLimiter         *mw.RateLimiter

	Health        *HealthHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
	Signals       *SignalHandler
	WebSocket     *WebSocketHandler
}

// NewRouter builds the HTTP routes of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))

	// Probe paths stay outside /api/v1.
	cfg.Health.RegisterRoutes(r)

	r.Route("/notifications", func(r chi.Router) {
		if cfg.WebhookRateLimiter != nil {
			r.Use(cfg.WebhookRateLimiter.Middleware)
		}
		r.Use(mw.NotificationSecret(cfg.NotificationSecretHash))
		cfg.Notifications.RegisterRoutes(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
			ExposedHeaders:   []string{mw.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           int((5 * time.Minute).Seconds()),
		}))

		// The websocket handshake authenticates with a query token.
		r.Get("/ws", cfg.WebSocket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.TokenManager))
			if cfg.APIRateLimiter != nil {
				r.Use(cfg.APIRateLimiter.Middleware)
			}

			r.Route("/signals", cfg.Signals.RegisterRoutes)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mw.RequireRole(auth.RoleAdmin))
				cfg.Admin.RegisterRoutes(r)
			})
		})
	})

	return r
}
