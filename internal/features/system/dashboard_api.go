package system

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DashboardApi struct {
	controller *DashboardController
	config     *config.Config
}

func NewDashboardApi(controller *DashboardController, cfg *config.Config) api.Route {
	return &DashboardApi{
		controller: controller,
		config:     cfg,
	}
}

func (h *DashboardApi) Setup(app *fiber.App) {
	group := app.Group("/api/dashboard", middleware.AuthMiddleware(h.config.SkipAuth))
	group.Get("/", h.controller.GetDashboard)
}
