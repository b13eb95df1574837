package routes

import (
	"time"

	"ministry-assetloan/internal/adapters/http/handlers"
	"ministry-assetloan/internal/adapters/http/middleware"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Setup configures all routes for the application. brokerUp reports
// broker health and may be nil.
func Setup(app *fiber.App, cfg *config.Config, svc *services.Services, brokerUp func() bool) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, brokerUp)
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	userHandler := handlers.NewUserHandler(svc.Users)
	assetHandler := handlers.NewAssetHandler(svc.Ledger)
	loanHandler := handlers.NewLoanHandler(svc.Loans)
	ticketHandler := handlers.NewTicketHandler(svc.Tickets)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(time.Hour), swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.NoStore())
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(cfg)

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", auth, authHandler.Me)

	// User management routes (Admin only)
	userRoutes := apiV1.Group("/users", auth, middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (Authenticated users)
	apiV1.Put("/profile/password", auth, userHandler.ChangePassword)

	setupLoanRoutes(apiV1.Group("/loans"), loanHandler, cfg)
	setupAssetRoutes(apiV1.Group("/assets", auth), assetHandler)
	setupTicketRoutes(apiV1.Group("/tickets", auth), ticketHandler)

	// Dashboard routes
	dashboardRoutes := apiV1.Group("/dashboard", auth, middleware.StaffOnly())
	dashboardRoutes.Get("/summary", dashboardHandler.Summary)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Post("/", handler.CreateUser)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Delete("/:id", handler.DeleteUser)
}

// setupLoanRoutes configures loan workflow routes. Static paths are
// registered before /:id.
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler, cfg *config.Config) {
	auth := middleware.AuthMiddleware(cfg)
	staff := middleware.StaffOnly()
	approver := middleware.ApproverOnly()

	// Public (guest applicants)
	router.Post("/", middleware.OptionalAuth(cfg), handler.Submit)
	router.Get("/track", middleware.StrictRateLimiter(), handler.Track)

	// Applicant
	router.Get("/my", auth, handler.Mine)

	// Staff listings
	router.Get("/pending", auth, approver, handler.Pending)
	router.Get("/active", auth, staff, handler.Active)
	router.Get("/overdue", auth, staff, handler.Overdue)

	router.Get("/:id", auth, staff, handler.Get)
	router.Get("/:id/history", auth, staff, handler.History)

	// Review & approval
	router.Put("/:id/review", auth, approver, handler.StartReview)
	router.Put("/:id/approve", auth, approver, handler.Approve)
	router.Put("/:id/reject", auth, approver, handler.Reject)

	// Handover
	router.Put("/:id/issue", auth, staff, handler.Issue)
	router.Put("/:id/collect", auth, staff, handler.Collect)

	// Extensions
	router.Post("/:id/extensions", auth, handler.RequestExtension)
	router.Put("/:id/extensions/approve", auth, approver, handler.ApproveExtension)
	router.Put("/:id/extensions/reject", auth, approver, handler.RejectExtension)

	// Return & cancel
	router.Put("/:id/return", auth, staff, handler.Return)
	router.Put("/:id/cancel", auth, handler.Cancel)
}

// setupAssetRoutes configures inventory routes
func setupAssetRoutes(router fiber.Router, handler *handlers.AssetHandler) {
	router.Get("/", handler.List)
	router.Post("/", middleware.AdminOnly(), handler.Register)
	router.Get("/:id", handler.Get)
	router.Get("/:id/availability", handler.Availability)
	router.Put("/:id/serviceable", middleware.StaffOnly(), handler.MarkServiceable)
	router.Put("/:id/retire", middleware.AdminOnly(), handler.Retire)
}

// setupTicketRoutes configures helpdesk routes
func setupTicketRoutes(router fiber.Router, handler *handlers.TicketHandler) {
	staff := middleware.StaffOnly()

	router.Post("/", handler.Create)
	router.Get("/", staff, handler.List)
	router.Get("/breaches", staff, handler.Breaches)
	router.Get("/:id", staff, handler.Get)
	router.Put("/:id/assign", staff, handler.Assign)
	router.Put("/:id/start", staff, handler.Start)
	router.Put("/:id/resolve", staff, handler.Resolve)
	router.Put("/:id/close", staff, handler.Close)
	router.Put("/:id/cancel", staff, handler.Cancel)
	router.Put("/:id/extend-sla", middleware.AdminOnly(), handler.ExtendSLA)
}
