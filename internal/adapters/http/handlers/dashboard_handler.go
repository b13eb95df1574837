package handlers

import (
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Summary returns the reporting summary
// @Summary Dashboard summary
// @Description Asset utilization, loan pipeline and helpdesk SLA figures (staff only)
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	data, err := h.dashboardService.Summary(c.Context())
	if err != nil {
		return writeDomainError(c, err, "Failed to get dashboard summary")
	}

	return response.Success(c, "Dashboard summary retrieved successfully", data)
}
