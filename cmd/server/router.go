package main

import (
	"context"
	"time"

	"note-sync/cmd/server/handlers"
	"note-sync/cmd/server/handlers/connectivity"
	enginehandlers "note-sync/cmd/server/handlers/engine"
	"note-sync/cmd/server/handlers/httperr"
	noteshandlers "note-sync/cmd/server/handlers/notes"
	"note-sync/cmd/server/middlewares"
	"note-sync/internal/config"
	"note-sync/internal/logger"
	"note-sync/internal/services/notes"

	_ "note-sync/docs" // Load swagger docs

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
)

const SyncRateExpiration = 1 * time.Minute

// routerDeps are the collaborators the HTTP layer talks to.
type routerDeps struct {
	service  *notes.Service
	engine   enginehandlers.Engine
	session  enginehandlers.Session
	registry *prometheus.Registry
	breaker  handlers.BreakerReporter
}

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config, d routerDeps) *fiber.App {
	v := validator.New()

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type",
	}))

	if cfg.RouteMetricsEnabled && d.registry != nil {
		middlewares.AttachMetrics(app, d.registry)
	}

	// Outside the versioned API so probes are never request-logged.
	app.Get("/healthz", handlers.Healthz(d.service, d.breaker))

	app.Get("/docs/*", swagger.HandlerDefault)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	notesH := noteshandlers.NewHandlers(d.service, v)
	notesGrp := v1.Group("/notes")
	notesGrp.Get("/", notesH.List)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/archive", notesH.ListArchived)
	notesGrp.Delete("/archive/:id", notesH.DeleteArchived)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)

	connH := connectivity.NewHandlers(d.service, cfg.WSMaxSessionSec, cfg.WSOutboxBuffer)
	v1.Get("/connectivity", connH.Get)
	app.Get("/ws/connectivity", connH.WSUpgrade, websocket.New(connH.WSStream))

	engineH := enginehandlers.NewHandlers(ctx, d.engine, d.session, v)
	syncLimiter := middlewares.SyncLimiter(cfg.SyncRatePerMin, SyncRateExpiration)
	v1.Post("/sync", syncLimiter, engineH.Sync)
	v1.Get("/sync/report", engineH.Report)
	v1.Post("/session", engineH.SetSession)
	v1.Delete("/session", engineH.SignOut)

	return app
}
