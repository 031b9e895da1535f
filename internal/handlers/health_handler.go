package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports on one dependency. A nil check marks the dependency as disabled.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the service and its dependencies.
type HealthHandler struct {
	checks   map[string]HealthCheck
	critical map[string]bool
}

// NewHealthHandler creates a HealthHandler. A failing critical check turns the
// response into a 503.
func NewHealthHandler(checks map[string]HealthCheck, critical ...string) *HealthHandler {
	h := &HealthHandler{checks: checks, critical: make(map[string]bool, len(critical))}
	for _, name := range critical {
		h.critical[name] = true
	}
	return h
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth runs every check with a short timeout.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := fiber.StatusOK
	components := make(fiber.Map, len(names))
	for _, name := range names {
		check := h.checks[name]
		if check == nil {
			components[name] = "disabled"
			continue
		}
		if err := check(ctx); err != nil {
			components[name] = "down: " + err.Error()
			status = "degraded"
			if h.critical[name] {
				code = fiber.StatusServiceUnavailable
			}
			continue
		}
		components[name] = "up"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"time":       time.Now().UTC(),
		"components": components,
	})
}
