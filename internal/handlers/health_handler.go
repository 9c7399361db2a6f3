package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"later/internal/database"
	"later/internal/services"
)

// HealthHandler serves liveness and dependency health checks.
type HealthHandler struct {
	db    *database.MongoDB
	redis *services.RedisService // optional
}

// NewHealthHandler creates a health handler. redis may be nil.
func NewHealthHandler(db *database.MongoDB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{}

	if err := h.db.Ping(ctx); err != nil {
		checks["mongodb"] = "down"
		status = fiber.StatusServiceUnavailable
	} else {
		checks["mongodb"] = "up"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}
