package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/eventbus"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/services"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/web"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	engine      *workflow.Engine
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
	engine *workflow.Engine,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		tracer:      tracer,
		engine:      engine,
	}
}

func (a *API) App() *fiber.App {
	validate := services.NewValidator()

	handlers := web.NewAPIHandlers(
		services.NewDirectory(a.persistence, validate, a.logger),
		services.NewProcess(a.persistence, validate, a.tracer),
		services.NewForm(a.persistence, validate, a.tracer),
		services.NewTask(a.persistence, a.engine, a.eventBus, a.tracer, a.logger),
		validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("WorkflowHub API")
	})

	handlers.Routes(app)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
