package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vendorgate/internal/gateway"
	"vendorgate/internal/models"
)

type HealthHandler struct {
	logger  *zap.Logger
	gateway *gateway.Gateway
	started time.Time
}

func NewHealthHandler(gw *gateway.Gateway, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:  log,
		gateway: gw,
		started: time.Now(),
	}
}

// Health returns gateway health status
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Status returns gateway status
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.HealthCheckResponse{
		Status:    "running",
		Timestamp: time.Now().UTC(),
		Services: map[string]interface{}{
			"upstream": fiber.Map{
				"base_url": h.gateway.BaseURL(),
				"breaker":  h.gateway.BreakerState(),
			},
			"uptime": time.Since(h.started).Round(time.Second).String(),
		},
	})
}
