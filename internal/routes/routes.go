package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/agrisetu/agrisetu/internal/auth"
	"github.com/agrisetu/agrisetu/internal/config"
	"github.com/agrisetu/agrisetu/internal/identity"
	"github.com/agrisetu/agrisetu/internal/infra"
	"github.com/agrisetu/agrisetu/internal/middleware"
)

// StoreStatus is the read-only view of the store connection the health
// endpoints consume. The lifecycle manager satisfies it; tests substitute a
// fake.
type StoreStatus interface {
	Status() infra.Status
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Repo   identity.Repository
	Tokens *auth.TokenService
	Store  StoreStatus
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Repo == nil {
		return fmt.Errorf("user repository is required")
	}
	if d.Tokens == nil {
		return fmt.Errorf("token service is required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.Cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization",
	}))
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	authSvc := auth.NewService(d.Repo, d.Tokens)
	authHandler := auth.NewHandler(authSvc, d.Logger)
	guard := middleware.Protect(d.Tokens, d.Repo)

	api := app.Group("/api")
	RegisterAuthRoutes(api, authHandler, guard)
	RegisterHealthRoutes(api, d.Store)

	// JSON 404 fallback for anything unrouted.
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": fmt.Sprintf("Route %s not found", c.OriginalURL()),
		})
	})

	return nil
}
