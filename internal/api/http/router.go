package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/urbispulse/internal/api/http/handlers"
	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Drafts         *handlers.DraftsHandler
	Categories     []domain.Category
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
	UpvoteLimiter  *RateLimiter
	CommitLimiter  *RateLimiter
}

// RegisterRoutes wires HTTP routes. Reads take an optional bearer token; mutations require one.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Me)

	app.Get("/categories", handlers.Categories(cfg.Categories))

	complaints := app.Group("/complaints")
	complaints.Get("/", cfg.AuthMiddleware.Optional, cfg.Complaints.List)
	complaints.Get("/:id", cfg.AuthMiddleware.Optional, cfg.Complaints.Get)
	complaints.Get("/:id/history", cfg.AuthMiddleware.Optional, cfg.Complaints.History)

	// Group-level middleware would also run for later sibling routes, so guards are per route.
	staff := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaff(), h}
	}
	complaints.Post("/:id/transition", staff(cfg.Complaints.Transition)...)
	complaints.Post("/:id/advance", staff(cfg.Complaints.Advance)...)
	complaints.Post("/:id/fast-track", staff(cfg.Complaints.FastTrack)...)
	complaints.Put("/:id/severity", staff(cfg.Complaints.SetSeverity)...)

	complaints.Post("/:id/upvote", cfg.AuthMiddleware.Handle, limiter(cfg.UpvoteLimiter), cfg.Complaints.Upvote)

	drafts := app.Group("/drafts", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	drafts.Post("/", cfg.Drafts.Start)
	drafts.Get("/:id", cfg.Drafts.Get)
	drafts.Get("/:id/preview", cfg.Drafts.Preview)
	drafts.Post("/:id/category", cfg.Drafts.SelectCategory)
	drafts.Put("/:id/details", cfg.Drafts.UpdateDetails)
	drafts.Put("/:id/location", cfg.Drafts.UpdateLocation)
	drafts.Post("/:id/next", cfg.Drafts.Next)
	drafts.Post("/:id/back", cfg.Drafts.Back)
	drafts.Post("/:id/commit", limiter(cfg.CommitLimiter), cfg.Drafts.Commit)
}

func limiter(rl *RateLimiter) fiber.Handler {
	if rl == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return rl.Handler()
}
