package importer

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ImportApi struct {
	controller *ImportController
	config     *config.Config
}

func NewImportApi(controller *ImportController, config *config.Config) api.Route {
	return &ImportApi{
		controller: controller,
		config:     config,
	}
}

func (a *ImportApi) Setup(app *fiber.App) {
	group := app.Group("/api/import", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Post("/", a.controller.ImportFile)
}
