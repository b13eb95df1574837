package handlers

import (
	"ministry-assetloan/internal/config"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cfg      *config.Config
	brokerUp func() bool
}

// NewHealthHandler creates a new health handler. brokerUp may be nil when
// events are only logged.
func NewHealthHandler(cfg *config.Config, brokerUp func() bool) *HealthHandler {
	return &HealthHandler{cfg: cfg, brokerUp: brokerUp}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 Asset Loan & Helpdesk API v1.0 is running",
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API, database and broker health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "healthy"
	if err := config.HealthCheck(); err != nil {
		dbStatus = "unhealthy"
	}

	brokerStatus := "disabled"
	if h.brokerUp != nil {
		brokerStatus = "healthy"
		if !h.brokerUp() {
			brokerStatus = "unhealthy"
		}
	}

	code, status := fiber.StatusOK, "ok"
	if dbStatus != "healthy" {
		code, status = fiber.StatusServiceUnavailable, "degraded"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
			"broker":   brokerStatus,
		},
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Asset Loan & Helpdesk API v1.0",
		"version": "1.0.0",
	})
}
