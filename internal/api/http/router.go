package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/http/handlers"
	"github.com/spec-kit/ticket-router/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	admin := auth.RequireRole(auth.RoleAdmin)
	api.Get("/metrics", admin, cfg.Health.Metrics)

	agents := api.Group("/agents", admin)
	agents.Post("/", cfg.Agents.Create)
	agents.Get("/", cfg.Agents.List)
	agents.Get("/stats", cfg.Agents.Stats)
	agents.Get("/available", cfg.Agents.Available)
	agents.Get("/:id", cfg.Agents.Get)
	agents.Put("/:id", cfg.Agents.Update)
	agents.Delete("/:id", cfg.Agents.Deactivate)
	agents.Post("/:id/status", cfg.Agents.SetStatus)

	tickets := api.Group("/tickets")
	tickets.Post("/", admin, cfg.Tickets.Create)
	tickets.Get("/", admin, cfg.Tickets.List)
	tickets.Get("/:id", admin, cfg.Tickets.Get)
	tickets.Put("/:id/status", admin, cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/assign", admin, cfg.Tickets.Assign)
	tickets.Delete("/:id/assign", admin, cfg.Tickets.Unassign)
	tickets.Post("/:id/classification", auth.RequireRole(auth.RoleAdmin, auth.RoleService), cfg.Tickets.Classify)
}
