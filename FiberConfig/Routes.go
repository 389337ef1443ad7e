package FiberConfig

import (
	"fmt"
	"os"
	"time"

	"Rishui/Controllers"
	"Rishui/Models"
	"Rishui/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
)

// SetupRoutes registers the API route table.
func SetupRoutes(app *fiber.App, reports *Controllers.ReportController) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", Controllers.Register)
	auth.Post("/login", Controllers.Login)
	auth.Get("/me", middleware.Protect(), Controllers.Me)

	// Business routes
	businesses := api.Group("/businesses", middleware.Protect())
	businesses.Get("/statuses", Controllers.GetStatusOptions)
	businesses.Get("/", Controllers.GetAllBusinesses)
	businesses.Post("/", Controllers.CreateBusiness)
	businesses.Get("/:id", Controllers.GetBusiness)
	businesses.Put("/:id", Controllers.UpdateBusiness)
	businesses.Patch("/:id/status", Controllers.UpdateBusinessStatus)
	businesses.Patch("/:id/location", Controllers.UpdateBusinessLocation)
	businesses.Delete("/:id", middleware.Authorize(Models.RoleManager, Models.RoleAdmin), Controllers.DeleteBusiness)

	// Report routes. Export and the business listing go before the :id
	// routes to avoid conflicts.
	reportRoutes := api.Group("/reports", middleware.Protect())
	reportRoutes.Get("/export", reports.ExportReports)
	reportRoutes.Get("/business/:businessId", reports.GetReportsByBusiness)
	reportRoutes.Get("/", reports.GetAllReports)
	reportRoutes.Post("/", reports.CreateReport)
	reportRoutes.Get("/:id", reports.GetReport)
	reportRoutes.Put("/:id", reports.UpdateReport)
	app.Get("/reports/:id/print", middleware.Protect(), reports.PrintReportView)

	// Licensing catalog
	licensing := api.Group("/licensing-items", middleware.Protect())
	licensing.Get("/", Controllers.GetLicensingItems)
	licensing.Get("/:id", Controllers.GetLicensingItem)
	licensing.Post("/", middleware.Authorize(Models.RoleManager, Models.RoleAdmin), Controllers.CreateLicensingItem)

	// Defect catalog
	defects := api.Group("/defects", middleware.Protect())
	defects.Get("/", Controllers.GetDefects)
	defects.Post("/", middleware.Authorize(Models.RoleManager, Models.RoleAdmin), Controllers.CreateDefect)
	defects.Delete("/:id", middleware.Authorize(Models.RoleManager, Models.RoleAdmin), Controllers.DeleteDefect)

	// External calendar feed
	api.Get("/calendar", middleware.Protect(), Controllers.GetCalendarEvents)

	// Admin panel
	admin := api.Group("/admin", middleware.Protect(), middleware.Authorize(Models.RoleAdmin))
	admin.Get("/users", Controllers.GetUsers)
	admin.Patch("/users/:id/approve", Controllers.ApproveUser)
	admin.Patch("/users/:id/active", Controllers.SetUserActive)
	admin.Patch("/users/:id/role", Controllers.SetUserRole)
	admin.Delete("/users/:id", Controllers.DenyUser)
	admin.Get("/logs", Controllers.GetLogs)
}

// FiberConfig builds the Fiber app, wires middleware and routes, and starts
// listening.
func FiberConfig(reports *Controllers.ReportController) {
	fmt.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	// Html Template engine
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, reports)

	// Serve generated artifacts
	app.Static("/reports", "./public/reports", fiber.Static{Compress: true, CacheDuration: time.Second * 10})
	app.Static("/signatures", "./public/signatures", fiber.Static{Compress: true, CacheDuration: time.Second * 10})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	app.Listen(":" + port)
}
