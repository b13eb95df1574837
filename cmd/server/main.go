package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/http/middleware"
	"ministry-assetloan/internal/adapters/http/routes"
	"ministry-assetloan/internal/adapters/messaging"
	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "ministry-assetloan/docs" // Swagger docs
)

// @title Ministry Asset Loan API
// @version 1.0
// @description Asset lending and helpdesk API for ministry divisions
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email it-support@ministry.go.th

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:3000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	if cfg.SeedDevData {
		if err := config.NewSeeder(db).Run(); err != nil {
			log.Printf("⚠️ Warning: Failed to seed data: %v", err)
		}
	}

	slaTable, err := config.LoadSLATable(cfg.Workflow.SLAConfigPath)
	if err != nil {
		log.Fatalf("❌ Failed to load SLA table: %v", err)
	}

	publisher, brokerUp, closeBroker := connectBroker(cfg)
	defer closeBroker()

	store, closeCache := connectCache(cfg)
	defer closeCache()

	svc := services.NewServices(services.Deps{
		Repos:     repositories.NewRepositories(db),
		Config:    cfg,
		SLA:       slaTable,
		Publisher: publisher,
		Cache:     store,
	})

	// Periodic SLA breach and overdue reports
	if err := svc.Sweep.Start(); err != nil {
		log.Fatalf("❌ Failed to start sweep scheduler: %v", err)
	}
	defer svc.Sweep.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Ministry Asset Loan API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, cfg, svc, brokerUp)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// connectBroker dials RabbitMQ when configured and falls back to
// logging events otherwise. The returned func closes the connection.
func connectBroker(cfg *config.Config) (messaging.Publisher, func() bool, func()) {
	noop := func() {}
	if cfg.Messaging.URL == "" {
		log.Println("ℹ️ RABBITMQ_URL not set, events will be logged only")
		return messaging.LogPublisher{}, nil, noop
	}

	pub, err := messaging.NewRabbitPublisher(cfg.Messaging.URL, cfg.Messaging.Exchange)
	if err != nil {
		log.Printf("⚠️ Warning: RabbitMQ unavailable, events will be logged only: %v", err)
		return messaging.LogPublisher{}, func() bool { return false }, noop
	}
	log.Printf("✅ Connected to RabbitMQ exchange %s", cfg.Messaging.Exchange)
	return pub, pub.IsHealthy, func() {
		if err := pub.Close(); err != nil {
			log.Printf("⚠️ Warning: closing RabbitMQ connection: %v", err)
		}
	}
}

// connectCache uses Redis when configured and an in-process store otherwise
func connectCache(cfg *config.Config) (cache.Store, func()) {
	noop := func() {}
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryStore(), noop
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := cache.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("⚠️ Warning: Redis unavailable, using in-process cache: %v", err)
		return cache.NewMemoryStore(), noop
	}
	log.Printf("✅ Connected to Redis at %s", cfg.Redis.Addr)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("⚠️ Warning: closing Redis client: %v", err)
		}
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
