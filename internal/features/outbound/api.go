package outbound

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OutboundApi struct {
	controller *OutboundController
	config     *config.Config
}

func NewOutboundApi(controller *OutboundController, config *config.Config) api.Route {
	return &OutboundApi{
		controller: controller,
		config:     config,
	}
}

func (a *OutboundApi) Setup(app *fiber.App) {
	group := app.Group("/api/outbound", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/", a.controller.ListItems)
	group.Get("/stats", a.controller.OutboundStats)
	group.Post("/", a.controller.EnqueueItem)
	group.Post("/dispatch", a.controller.DispatchPending)
	group.Post("/:id/retry", a.controller.RetryItem)
}
