// Package main provides the docflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/BriefyHQ/docflow/pkg/events"
	"github.com/BriefyHQ/docflow/pkg/otelhelper"
	"github.com/BriefyHQ/docflow/pkg/persistence"
	"github.com/BriefyHQ/docflow/pkg/registry"
	"github.com/BriefyHQ/docflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	store    persistence.Store
	emitter  *events.Emitter
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	reg *registry.Registry,
	store persistence.Store,
	emitter *events.Emitter,
) *API {
	return &API{
		logger:   logger,
		registry: reg,
		store:    store,
		emitter:  emitter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) *fiber.App {
	handlers := web.NewAPIHandlers(a.registry, a.store, a.emitter, a.validate, a.logger)

	if tracer, err := otelhelper.NewTracer(ctx, "docflow-api"); err == nil {
		handlers = handlers.WithTracer(tracer)
	} else {
		a.logger.WarnContext(ctx, "Tracing disabled", "error", err)
	}

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("docflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetEntities)
	w.Get("/:entity", handlers.GetEntity)

	d := app.Group("/documents/:entity")
	d.Post("/", handlers.CreateDocument)
	d.Get("/:id", handlers.GetDocument)
	d.Post("/:id/transitions/:transition", handlers.PostTransition)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App(ctx)

	return app.Listen(":" + strconv.Itoa(port))
}
