package system

import (
	"go-crm-sync/internal/features/events"
	"go-crm-sync/internal/features/mapping"
	"go-crm-sync/internal/features/outbound"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	Processor  events.ProcessorService
	Dispatcher outbound.DispatcherService
	Mapping    mapping.MappingService
}

func NewDashboardController(processor events.ProcessorService, dispatcher outbound.DispatcherService, mappingService mapping.MappingService) *DashboardController {
	return &DashboardController{
		Processor:  processor,
		Dispatcher: dispatcher,
		Mapping:    mappingService,
	}
}

// GetDashboard godoc
// @Summary Integration status dashboard
// @Description Per-status counts for both directions plus mapping coverage
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/dashboard [get]
func (ctrl *DashboardController) GetDashboard(c *fiber.Ctx) error {
	inbound, err := ctrl.Processor.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	outboundCounts, err := ctrl.Dispatcher.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	coverage, err := ctrl.Mapping.Coverage(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"inbound":  inbound,
		"outbound": outboundCounts,
		"coverage": coverage,
	})
}
