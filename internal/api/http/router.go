package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agency-ops/report-desk/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Report *handlers.ReportHandler
	Wizard *handlers.WizardHandler

	// UploadDir, when set, is served under /uploads so evidence links in
	// ticket embeds resolve.
	UploadDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth/discord")
	authGroup.Get("/login", cfg.Auth.Login)
	authGroup.Get("/callback", cfg.Auth.Callback)

	api.Post("/report/submit", cfg.Report.Submit)

	wizardGroup := api.Group("/wizard")
	wizardGroup.Post("/", cfg.Wizard.Create)
	wizardGroup.Get("/:id", cfg.Wizard.Get)
	wizardGroup.Post("/:id/primary", cfg.Wizard.SetPrimary)
	wizardGroup.Post("/:id/secondary/confirm", cfg.Wizard.ConfirmSecondary)
	wizardGroup.Post("/:id/details", cfg.Wizard.SetDetails)
	wizardGroup.Post("/:id/evidence", cfg.Wizard.AttachEvidence)
	wizardGroup.Post("/:id/submit", cfg.Wizard.Submit)
	wizardGroup.Post("/:id/dismiss", cfg.Wizard.DismissError)
	wizardGroup.Post("/:id/reset", cfg.Wizard.Reset)

	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}
}
