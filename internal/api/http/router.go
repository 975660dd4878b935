package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supportdesk/triage-service/internal/api/http/handlers"
	"github.com/supportdesk/triage-service/internal/auth"
	"github.com/supportdesk/triage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Query          *handlers.QueryHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Feedback       *handlers.FeedbackHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/query", cfg.Query.Query)

	app.Get("/metrics", cfg.Metrics.Metrics)
	if cfg.Gatherer != nil {
		app.Get("/metrics/prometheus", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/operators/login", cfg.Auth.Login)

	feedback := app.Group("/feedback", cfg.AuthMiddleware.Handle)
	feedback.Get("/:ticket_id", auth.RequireRole(domain.OperatorRoleAdmin, domain.OperatorRoleAnalyst), cfg.Feedback.Get)
	feedback.Patch("/:ticket_id", auth.RequireRole(domain.OperatorRoleAdmin), cfg.Feedback.Correct)
}
