package mapping

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MappingApi struct {
	controller *MappingController
	config     *config.Config
}

func NewMappingApi(controller *MappingController, config *config.Config) api.Route {
	return &MappingApi{
		controller: controller,
		config:     config,
	}
}

func (a *MappingApi) Setup(app *fiber.App) {
	group := app.Group("/api/mappings", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/coverage", a.controller.Coverage)
	group.Post("/:kind", a.controller.SetMapping)
	group.Get("/:kind", a.controller.ListMappings)
}
