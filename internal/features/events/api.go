package events

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EventApi struct {
	controller *EventController
	config     *config.Config
}

func NewEventApi(controller *EventController, config *config.Config) api.Route {
	return &EventApi{
		controller: controller,
		config:     config,
	}
}

func (a *EventApi) Setup(app *fiber.App) {
	// The provider cannot attach a bearer token; the webhook endpoint
	// stands alone without auth middleware.
	app.Post("/api/webhooks/inbound", a.controller.IngestWebhook)

	group := app.Group("/api/events", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/", a.controller.ListEvents)
	group.Get("/stats", a.controller.EventStats)
	group.Post("/process", a.controller.ProcessBatch)
	group.Post("/retry", a.controller.BulkRetry)
	group.Post("/ignore", a.controller.BulkIgnore)
	group.Post("/:id/retry", a.controller.RetryEvent)
	group.Post("/:id/ignore", a.controller.IgnoreEvent)
}
