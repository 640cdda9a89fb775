package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ecgprep/internal/config"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/infrastructure"
	"ecgprep/internal/middleware"
)

// RouterDeps holds everything NewRouter mounts. Nil handlers are skipped.
type RouterDeps struct {
	Server       config.ServerConfig
	Logger       *slog.Logger
	Providers    *infrastructure.OTelProviders
	Metrics      *infrastructure.ConversionMetrics
	ErrorHandler *apperrors.ErrorHandler
	Health       *HealthHandler
	Signals      *SignalHandler
	Conversions  *ConversionHandler
	WebSocket    http.Handler
}

// NewRouter builds the service router.
// Middleware order: RequestID, RealIP, OTel, Logger, Recoverer, headers, CORS, rate limit.
func NewRouter(d RouterDeps) chi.Router {
	r := chi.NewRouter()

	// The websocket route only gets middleware that leaves the
	// ResponseWriter hijackable.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	if d.WebSocket != nil {
		r.Handle("/ws", d.WebSocket)
	}
	if d.Providers != nil && d.Providers.PrometheusHTTP != nil {
		r.Handle("/metrics", d.Providers.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		if d.Providers != nil && d.Providers.Tracer != nil {
			r.Use(middleware.NewOTelMiddleware(d.Providers, d.Metrics).Handler)
		}
		r.Use(middleware.StructuredLogger(d.Logger))
		r.Use(middleware.Recoverer(d.Logger))
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: d.Server.AllowedOrigins}))
		if rl := d.Server.RateLimit; rl.Enabled && rl.RPS > 0 {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, d.Logger).Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		if d.Health != nil {
			r.Get("/healthz", d.Health.HealthCheck)
			r.Get("/version", d.Health.Version)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.ContentTypeValidator("application/json"))
			if d.Signals != nil {
				r.Post("/normalize", d.Signals.Normalize)
				r.Post("/infer", d.Signals.Infer)
			}
			if d.Conversions != nil {
				r.Mount("/conversions", d.Conversions.Routes())
			}
		})
	})

	if d.ErrorHandler != nil {
		r.NotFound(d.ErrorHandler.NotFound)
		r.MethodNotAllowed(d.ErrorHandler.MethodNotAllowed)
	}

	return r
}
