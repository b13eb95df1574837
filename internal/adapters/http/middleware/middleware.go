package middleware

import (
	"errors"
	"log"
	"time"

	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const apiMethods = "GET,POST,PUT,DELETE,OPTIONS"

// Setup installs the global middleware chain
func Setup(app *fiber.App, cfg *config.Config) {
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDev()}))
	app.Use(requestid.New())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Security headers. Swagger UI needs same-origin framing.
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "SAMEORIGIN",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	// General API limit per IP
	app.Use(rateLimiter(120, "", "Too many requests, please slow down"))

	format := "${time} | ${locals:requestid} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n"
	if !cfg.IsDev() {
		format = "${time} | ${locals:requestid} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n"
	}
	app.Use(logger.New(logger.Config{
		Format:     format,
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	if cfg.IsDev() {
		app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: apiMethods,
			AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		}))
		return
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     apiMethods,
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))
}

// AuthRateLimiter limits login attempts to 5 per minute per IP
func AuthRateLimiter() fiber.Handler {
	return rateLimiter(5, "-auth", "Too many login attempts, please wait a minute")
}

// StrictRateLimiter limits public lookups such as loan tracking to 3 per
// minute per IP
func StrictRateLimiter() fiber.Handler {
	return rateLimiter(3, "-strict", "Please wait before trying again")
}

func rateLimiter(max int, keySuffix, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + keySuffix
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// CustomErrorHandler renders errors that escape handlers in the standard
// response envelope
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
	}

	return response.Error(c, code, message)
}
