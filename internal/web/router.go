package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/relaydesk/relaydesk/internal/ratelimit"
	"github.com/relaydesk/relaydesk/internal/web/handlers"
	"github.com/relaydesk/relaydesk/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	WebhookHandler *handlers.WebhookHandler
	ActionHandler  *handlers.ActionHandler
	Limiter        *ratelimit.Limiter
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)

	r.Get("/", handlers.HandleIndex)
	r.Get("/health", handlers.HandleHealth)

	// Provider webhooks (rate limited, tagged per delivery)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Limiter))
		r.Use(middleware.DeliveryID)

		r.Post("/webhook/jotform", deps.WebhookHandler.HandleFormSubmission)
		r.Post("/webhook/mailgun-incoming", deps.WebhookHandler.HandleInboundEmail)
	})

	// Operator actions, callable from the messaging platform's UI (CORS)
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))

		r.Post("/action/forward-to-distributor/{sessionID}", deps.ActionHandler.HandleForwardToDistributor)
	})

	return r
}
