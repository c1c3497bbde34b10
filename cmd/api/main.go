package main

import (
	"context"
	"fmt"
	common_api "go-crm-sync/internal/common/api"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/connectors"
	"go-crm-sync/internal/database"
	"go-crm-sync/internal/features/audit"
	"go-crm-sync/internal/features/catalog"
	cron_feature "go-crm-sync/internal/features/cron"
	"go-crm-sync/internal/features/events"
	"go-crm-sync/internal/features/governance"
	"go-crm-sync/internal/features/importer"
	"go-crm-sync/internal/features/mapping"
	"go-crm-sync/internal/features/outbound"
	"go-crm-sync/internal/features/system"
	"go-crm-sync/internal/logger"
	"go-crm-sync/internal/middleware"
	"go-crm-sync/pkg/utils"
	"log"
	"time"

	_ "go-crm-sync/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	catalogRepo catalog.CatalogRepository,
	mappingRepo mapping.MappingRepository,
	eventRepo events.EventRepository,
	outboundRepo outbound.OutboundRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// Use a background context with timeout for index creation
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := catalogRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure catalog indexes: %v", err)
				}
				if err := mappingRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure mapping indexes: %v", err)
				}
				if err := eventRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure event indexes: %v", err)
				}
				if err := outboundRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure outbound indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// @title           CRM Sync Engine API
// @version         1.0
// @description     Inbound event synchronization, mapping and outbound dispatch for an external CRM, using Fiber and Uber Fx.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.email   support@swagger.io

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Connectors
			connectors.NewProviderClient,
			connectors.NewCRMApplier,

			// Initialize Repository
			audit.NewAuditRepository,
			governance.NewSettingsRepository,
			catalog.NewCatalogRepository,
			mapping.NewMappingRepository,
			events.NewEventRepository,
			outbound.NewOutboundRepository,
			cron_feature.NewCronRepository,

			audit.NewAuditService,
			governance.NewGateService,
			catalog.NewCatalogService,
			mapping.NewMappingService,
			events.NewIngestService,
			events.NewProcessorService,
			outbound.NewDispatcherService,
			importer.NewImportService,
			cron_feature.NewSchedulerService,

			// Live feed hub doubles as the processor's transition publisher
			system.NewHub,
			func(h *system.Hub) events.TransitionPublisher { return h },

			// Initialize Controller
			audit.NewAuditController,
			governance.NewGovernanceController,
			catalog.NewCatalogController,
			mapping.NewMappingController,
			events.NewEventController,
			outbound.NewOutboundController,
			importer.NewImportController,
			cron_feature.NewCronController,
			system.NewDashboardController,
			system.NewDebugController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(governance.NewGovernanceApi),
			AsRoute(catalog.NewCatalogApi),
			AsRoute(mapping.NewMappingApi),
			AsRoute(events.NewEventApi),
			AsRoute(outbound.NewOutboundApi),
			AsRoute(importer.NewImportApi),
			AsRoute(cron_feature.NewCronApi),
			AsRoute(system.NewDashboardApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, scheduler cron_feature.SchedulerService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return scheduler.Start()
					},
					OnStop: func(ctx context.Context) error {
						return scheduler.Stop()
					},
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
