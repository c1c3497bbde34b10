package events

import (
	common_models "go-crm-sync/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type EventController struct {
	Ingest    IngestService
	Processor ProcessorService
	Repo      EventRepository
}

func NewEventController(ingest IngestService, processor ProcessorService, repo EventRepository) *EventController {
	return &EventController{
		Ingest:    ingest,
		Processor: processor,
		Repo:      repo,
	}
}

// IngestWebhook godoc
// @Summary Ingest an inbound change notification
// @Description Accepts one provider webhook; redelivery of a known row_key is a silent no-op
// @Tags events
// @Accept json
// @Produce json
// @Param body body RawEvent true "Raw event"
// @Success 202 {object} map[string]interface{}
// @Router /api/webhooks/inbound [post]
func (ctrl *EventController) IngestWebhook(c *fiber.Ctx) error {
	var raw RawEvent
	if err := c.BodyParser(&raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	event, created, err := ctrl.Ingest.Ingest(c.Context(), &raw)
	if err == ErrIngestDisabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"row_key":   event.RowKey,
		"duplicate": !created,
	})
}

// ListEvents godoc
// @Summary List inbound events
// @Tags events
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /api/events [get]
func (ctrl *EventController) ListEvents(c *fiber.Ctx) error {
	status := common_models.EventStatus(c.Query("status"))
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 50))

	events, err := ctrl.Repo.List(c.Context(), status, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": events,
	})
}

// ProcessBatch godoc
// @Summary Run one processing pass
// @Description Processes an explicit selection or the oldest pending events; safe to invoke concurrently
// @Tags events
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/events/process [post]
func (ctrl *EventController) ProcessBatch(c *fiber.Ctx) error {
	var req struct {
		IDs   []string `json:"ids"`
		Limit int64    `json:"limit"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	result, err := ctrl.Processor.ProcessBatch(c.Context(), req.IDs, req.Limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Processing pass complete",
		"data":    result,
	})
}

// RetryEvent godoc
// @Summary Reset one event to pending
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/events/{id}/retry [post]
func (ctrl *EventController) RetryEvent(c *fiber.Ctx) error {
	if err := ctrl.Processor.Retry(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Event reset to pending",
	})
}

// BulkRetry godoc
// @Summary Reset a selection of events to pending
// @Description Per-row independent; failures are reported per event id
// @Tags events
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/events/retry [post]
func (ctrl *EventController) BulkRetry(c *fiber.Ctx) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids is required",
		})
	}

	result := ctrl.Processor.BulkRetry(c.Context(), req.IDs)
	return c.JSON(fiber.Map{
		"data": result,
	})
}

// IgnoreEvent godoc
// @Summary Mark one event ignored
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/events/{id}/ignore [post]
func (ctrl *EventController) IgnoreEvent(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}

	if err := ctrl.Processor.Ignore(c.Context(), c.Params("id"), req.Reason); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Event ignored",
	})
}

// BulkIgnore godoc
// @Summary Mark a selection of events ignored
// @Tags events
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/events/ignore [post]
func (ctrl *EventController) BulkIgnore(c *fiber.Ctx) error {
	var req struct {
		IDs    []string `json:"ids"`
		Reason string   `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids is required",
		})
	}

	result := ctrl.Processor.BulkIgnore(c.Context(), req.IDs, req.Reason)
	return c.JSON(fiber.Map{
		"data": result,
	})
}

// EventStats godoc
// @Summary Event counts per status
// @Tags events
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/events/stats [get]
func (ctrl *EventController) EventStats(c *fiber.Ctx) error {
	counts, err := ctrl.Processor.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": counts,
	})
}
