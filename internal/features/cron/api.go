package cron_feature

import (
	"go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CronApi struct {
	controller *CronController
	config     *config.Config
}

func NewCronApi(controller *CronController, config *config.Config) api.Route {
	return &CronApi{
		controller: controller,
		config:     config,
	}
}

func (a *CronApi) Setup(app *fiber.App) {
	group := app.Group("/api/cron", middleware.AuthMiddleware(a.config.SkipAuth))

	group.Get("/runs", a.controller.ListRuns)
}
