package FiberConfig

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Maintenance/Config"
	"Maintenance/Controllers"
	"Maintenance/Models"
	"Maintenance/Notify"
	"Maintenance/Records"
	"Maintenance/Report"
	"Maintenance/Storage"
	"Maintenance/middleware"
)

// Deps is everything the handlers need, built once in main.
type Deps struct {
	Config    Config.Config
	Service   *Records.Service
	Template  *Models.ChecklistTemplate
	Photos    Storage.PhotoStore
	Fetcher   *Storage.Fetcher
	Ledger    *Storage.Ledger
	Generator *Report.Generator
	Notifier  Notify.Notifier

	// TemplatesDir holds the HTML shell; empty means ./Templates.
	TemplatesDir string
}

// BodyLimit leaves room for an export request carrying several photos.
const BodyLimit = 25 << 20

func SetupRoutes(app *fiber.App, d Deps) {
	production := d.Config.Production()

	authController := Controllers.NewAuthController(d.Service, d.Config.JWTSecret, production)
	checklistController := Controllers.NewChecklistController(d.Service, d.Template, d.Notifier, production)
	customerController := Controllers.NewCustomerController(d.Service, production)
	photoController := Controllers.NewPhotoController(d.Photos, d.Config.PhotoReferenceMode, production)
	exportController := Controllers.NewExportController(d.Service, d.Fetcher, d.Ledger, d.Generator, production)
	diagnosticsController := Controllers.NewDiagnosticsController(d.Service, d.Ledger, d.Config)
	logsController := Controllers.NewLogsController(d.Config.RequestLogPath)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static("/static", "static/", fiber.Static{Compress: true, CacheDuration: time.Minute})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("index", fiber.Map{"Title": d.Template.Title})
	})

	app.Post("/api/login", authController.Login)

	// Everything else under /api needs a token
	api := app.Group("/api", middleware.Verify(d.Config.JWTSecret))
	api.Post("/logout", authController.Logout)
	api.Get("/validate-token", authController.ValidateToken)

	api.Get("/getHomepageData", checklistController.GetHomepageData)
	api.Post("/saveDraft", checklistController.SaveDraft)
	api.Get("/getDraft", checklistController.GetDraft)
	api.Post("/submitChecklist", checklistController.SubmitChecklist)
	api.Get("/listChecklists", checklistController.ListChecklists)
	api.Get("/checklistTemplate", checklistController.ChecklistTemplate)
	api.Get("/exportChecklistsXLSX", checklistController.ExportChecklistsXLSX)

	api.Post("/createCustomer", customerController.CreateCustomer)
	api.Get("/getCustomers", customerController.GetCustomers)

	api.Post("/uploadImage", photoController.UploadImage)
	api.Get("/getImage", photoController.GetImage)

	api.Get("/exportChecklist", exportController.ExportChecklist)
	api.Post("/exportChecklist", exportController.ExportChecklist)

	api.Get("/diagnostics", diagnosticsController.Diagnostics)

	// Logs API routes
	api.Get("/logs", logsController.GetLogs)
	api.Get("/logs/stats", logsController.GetLogStats)
	api.Get("/logs/path/:path", logsController.GetLogsByPath)
}

// errorHandler answers unhandled errors in the same JSON shape as the handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"status": "error", "message": err.Error()})
}

func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		MaxAge:       300,
	}
	// Cookies only travel to named origins
	if origins != "" {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// NewApp builds the configured fiber app.
func NewApp(d Deps) *fiber.App {
	dir := d.TemplatesDir
	if dir == "" {
		dir = "./Templates"
	}
	// Html Template engine
	engine := html.New(dir, ".html")
	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    BodyLimit,
		ErrorHandler: errorHandler,
	})
	app.Use(middleware.RequestLogger(middleware.DefaultLogConfig(d.Config.RequestLogPath)))
	app.Use(middleware.Metrics())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(corsConfig(d.Config.CORSOrigins)))

	SetupRoutes(app, d)
	return app
}
