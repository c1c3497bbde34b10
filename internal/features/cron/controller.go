package cron_feature

import (
	"github.com/gofiber/fiber/v2"
)

type CronController struct {
	Service SchedulerService
}

func NewCronController(service SchedulerService) *CronController {
	return &CronController{
		Service: service,
	}
}

// ListRuns godoc
// @Summary List scheduled pass runs
// @Tags cron
// @Produce json
// @Param pass query string false "Filter by pass (process|dispatch)"
// @Param limit query int false "Max runs"
// @Success 200 {object} map[string]interface{}
// @Router /api/cron/runs [get]
func (ctrl *CronController) ListRuns(c *fiber.Ctx) error {
	pass := c.Query("pass")
	limit := int64(c.QueryInt("limit", 50))

	runs, err := ctrl.Service.ListRuns(c.Context(), pass, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": runs,
	})
}
