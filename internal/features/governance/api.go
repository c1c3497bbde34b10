package governance

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type GovernanceApi struct {
	controller *GovernanceController
	config     *config.Config
}

func NewGovernanceApi(controller *GovernanceController, config *config.Config) api.Route {
	return &GovernanceApi{
		controller: controller,
		config:     config,
	}
}

func (a *GovernanceApi) Setup(app *fiber.App) {
	group := app.Group("/api/governance", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/flags", a.controller.GetFlags)
	group.Put("/flags", a.controller.SetFlag)
}
