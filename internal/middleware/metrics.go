package middleware

import (
	"strings"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce    sync.Once
	httpMetrics *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the HTTP metrics collector for serviceName. The
// collectors live in the default registry, so every call after the first
// returns the same instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
		httpMetrics.SetSkipPaths([]string{"/metrics", "/health/live", "/health/ready"})
	})
	return httpMetrics
}

// MetricsMiddleware records request metrics, skipping the static media tree.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	record := prom.Middleware
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/media/") {
			return c.Next()
		}
		return record(c)
	}
}
