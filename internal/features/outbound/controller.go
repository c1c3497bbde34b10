package outbound

import (
	common_models "go-crm-sync/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type OutboundController struct {
	Service DispatcherService
	Repo    OutboundRepository
}

func NewOutboundController(service DispatcherService, repo OutboundRepository) *OutboundController {
	return &OutboundController{
		Service: service,
		Repo:    repo,
	}
}

// EnqueueItem godoc
// @Summary Queue an outbound change
// @Description One row per logical change; the caller decides when to enqueue
// @Tags outbound
// @Accept json
// @Produce json
// @Param body body OutboundQueueItem true "Queue item"
// @Success 201 {object} map[string]interface{}
// @Router /api/outbound [post]
func (ctrl *OutboundController) EnqueueItem(c *fiber.Ctx) error {
	var item OutboundQueueItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.Enqueue(c.Context(), &item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Outbound item queued",
		"data":    item,
	})
}

// DispatchPending godoc
// @Summary Run one dispatch pass
// @Tags outbound
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/outbound/dispatch [post]
func (ctrl *OutboundController) DispatchPending(c *fiber.Ctx) error {
	var req struct {
		Limit int64 `json:"limit"`
	}
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}

	result, err := ctrl.Service.DispatchPending(c.Context(), req.Limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Dispatch pass complete",
		"data":    result,
	})
}

// ListItems godoc
// @Summary List outbound queue items
// @Tags outbound
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /api/outbound [get]
func (ctrl *OutboundController) ListItems(c *fiber.Ctx) error {
	status := common_models.EventStatus(c.Query("status"))
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 50))

	items, err := ctrl.Repo.List(c.Context(), status, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": items,
	})
}

// RetryItem godoc
// @Summary Reset one outbound item to pending
// @Tags outbound
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/outbound/{id}/retry [post]
func (ctrl *OutboundController) RetryItem(c *fiber.Ctx) error {
	if err := ctrl.Service.Retry(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Outbound item reset to pending",
	})
}

// OutboundStats godoc
// @Summary Outbound queue counts per status
// @Tags outbound
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/outbound/stats [get]
func (ctrl *OutboundController) OutboundStats(c *fiber.Ctx) error {
	counts, err := ctrl.Service.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": counts,
	})
}
