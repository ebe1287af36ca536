package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/spec-kit/urbispulse/internal/observability"
)

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler(metrics *observability.Metrics) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	return func(c *fiber.Ctx) error {
		httpHandler(c.Context())
		return nil
	}
}
