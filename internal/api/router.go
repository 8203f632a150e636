package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/api/middleware"
	"github.com/deskroute/deskroute/internal/handlers"
	"github.com/deskroute/deskroute/internal/pipeline"
	"github.com/deskroute/deskroute/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, ds store.DataStore, redisStore *store.RedisStore, processor *pipeline.Processor, inbound handlers.InboundPublisher, rlCfg middleware.RateLimiterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (requires Redis; skipped in store-only dev setups)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, rlCfg)
		r.Use(limiter.Middleware)
	}

	// CORS - the submit form is embedded on customer-facing sites
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(ds, redisStore, processor, inbound)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Customer-facing surface
	r.Post("/support/submit", h.Submit)
	r.Get("/support/ticket/{id}", h.TicketStatus)
	r.Post("/webhooks/whatsapp", h.WhatsAppWebhook)

	// Operator surface
	r.Get("/customers/lookup", h.LookupCustomer)
	r.Get("/conversations/{id}", h.GetConversation)
	r.Get("/metrics/channels", h.ChannelStats)

	return r
}
