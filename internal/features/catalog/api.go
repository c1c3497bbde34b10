package catalog

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CatalogApi struct {
	controller *CatalogController
	config     *config.Config
}

func NewCatalogApi(controller *CatalogController, config *config.Config) api.Route {
	return &CatalogApi{
		controller: controller,
		config:     config,
	}
}

func (a *CatalogApi) Setup(app *fiber.App) {
	group := app.Group("/api/catalog", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Post("/", a.controller.UpsertEntry)
	group.Get("/:type", a.controller.ListEntries)
	group.Put("/:id/rename", a.controller.RenameEntry)
	group.Post("/:type/sync", a.controller.SyncCatalog)
}
