// Package main is the entry point for the API server. It initializes
// configuration, storage and the service graph, then starts the HTTP
// listener.
package main

import (
	"context"
	"log"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/config"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/logging"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()
	logger := logging.New(config.GetEnv("LOG_LEVEL", "info"))

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Stale derived data (spend windows) must not survive a restart.
	if repositories.CacheService != nil {
		if err := repositories.CacheService.FlushAll(context.Background()); err != nil {
			log.Printf("Failed to flush Redis cache: %v", err)
		}
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Funds movement endpoints are rate-limited per client IP.
	for _, path := range []string{"/api/wallet/withdraw", "/api/transfer", "/api/bills/pay"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 10),
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(429).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
	}

	routes.SetupRoutes(app, repositories.DB, logger)

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
