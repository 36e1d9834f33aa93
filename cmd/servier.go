package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/asyncx"
	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Environment & Logger
	_ = godotenv.Load()
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Info("🚀 Starting Mailflow API Server...")

	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Server.ServiceToken == "" {
		if cfg.IsProduction() {
			logx.Fatal("API_SERVICE_TOKEN is required in production")
		}
		logx.Warn("⚠️  API_SERVICE_TOKEN not set, send endpoints are unauthenticated")
	}

	// 2. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Mailflow API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		BodyLimit:             20 * 1024 * 1024, // recipient lists can be large
		IdleTimeout:           120 * time.Second,
		EnablePrintRoutes:     false,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: generateRequestID,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler)
	app.Get("/api/v1/docs", apiDocsHandler)

	// 6. Register Routes

	// ========================================================================
	// Newsletter Sends
	// ========================================================================
	// Sends: /api/v1/newsletters/sends/*, Jobs: /api/v1/jobs/:id
	container.Newsletter.Handlers.RegisterRoutes(app, container.Newsletter.AuthMiddleware)
	logx.Info("✓ Newsletter routes registered")

	// 7. 404 Handler
	app.Use(notFoundHandler)

	// 8. Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := container.StartBackgroundServices(workerCtx)

	// 9. Print Route Summary
	printRouteSummary()

	// 10. Start Server with Graceful Shutdown
	startServer(app, cfg.Server.Port)

	stopWorkers()
	<-workersDone
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler returns a health check handler
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := []healthCheck{{
			name: "redis",
			run:  func(ctx context.Context) error { return container.Redis.Ping(ctx).Err() },
		}}
		if container.DB != nil {
			checks = append(checks, healthCheck{name: "db", run: container.DB.PingContext})
		}
		// Storage check is optional since S3 round trips can be slow
		if c.QueryBool("check_storage", false) {
			checks = append(checks, healthCheck{
				name:     "storage",
				optional: true,
				run: func(ctx context.Context) error {
					_, err := container.FileSystem.Exists(ctx, ".health-check")
					return err
				},
			})
		}

		health := runHealthChecks(ctx, checks)
		health["service"] = "mailflow-api"
		health["version"] = getEnv("APP_VERSION", "1.0.0")

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// healthCheck pings one dependency. A failing optional check is
// reported without degrading the service.
type healthCheck struct {
	name     string
	optional bool
	run      func(context.Context) error
}

// runHealthChecks runs every check concurrently and folds the outcomes into
// the health payload.
func runHealthChecks(ctx context.Context, checks []healthCheck) fiber.Map {
	fns := make([]func(context.Context) (struct{}, error), len(checks))
	for i, hc := range checks {
		hc := hc
		fns[i] = func(ctx context.Context) (struct{}, error) { return struct{}{}, hc.run(ctx) }
	}

	health := fiber.Map{"status": "healthy"}
	for i, res := range asyncx.AllSettled(ctx, fns...) {
		hc := checks[i]
		if res.OK() {
			health[hc.name] = "healthy"
			continue
		}
		health[hc.name] = "unhealthy"
		health[hc.name+"_error"] = res.Err.Error()
		if !hc.optional {
			health["status"] = "degraded"
		}
	}
	return health
}

// infoHandler returns basic API information
func infoHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "Mailflow API",
		"version":     getEnv("APP_VERSION", "1.0.0"),
		"description": "Batched newsletter delivery",
		"features": []string{
			"Personalized batch sending",
			"Resumable send workflows",
			"Delivery deduplication",
			"Provider fallback",
		},
		"endpoints": fiber.Map{
			"docs":   "/api/v1/docs",
			"health": "/health",
		},
	})
}

// apiDocsHandler returns API documentation
func apiDocsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"api_version": "v1",
		"base_url":    getEnv("API_BASE_URL", "http://localhost:8080"),
		"endpoints": fiber.Map{
			"newsletters": fiber.Map{
				"send":        "POST /api/v1/newsletters/sends",
				"progress":    "GET /api/v1/newsletters/sends/:groupUUID",
				"report":      "GET /api/v1/newsletters/sends/:groupUUID/report",
				"batches":     "GET /api/v1/newsletters/sends/:groupUUID/batches",
				"unsubscribe": "GET /api/v1/newsletters/unsubscribe/verify?token=",
			},
			"jobs": fiber.Map{
				"get": "GET /api/v1/jobs/:id",
			},
		},
		"authentication": fiber.Map{
			"types": []string{"Service token"},
			"headers": fiber.Map{
				"service_token": "Authorization: Bearer <token>",
			},
		},
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(c *fiber.Ctx, err error) error {
	requestID := c.GetRespHeader("X-Request-ID", c.Get("X-Request-ID"))

	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": requestID,
		"user_agent": c.Get("User-Agent"),
	}).Errorf("Request error: %v", err)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":      fe.Message,
			"code":       "FIBER_ERROR",
			"status":     fe.Code,
			"request_id": requestID,
		})
	}

	var e *errx.Error
	if errors.As(err, &e) {
		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": requestID,
		}

		if len(e.Details) > 0 {
			response["details"] = e.Details
		}

		if getEnv("DEBUG", "false") == "true" && e.Err != nil {
			response["underlying_error"] = e.Err.Error()
		}

		return c.Status(e.HTTPStatus).JSON(response)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "Internal Server Error",
		"type":       "INTERNAL",
		"code":       "INTERNAL_ERROR",
		"message":    "An unexpected error occurred",
		"request_id": requestID,
	})
}

// ============================================================================
// Utility Functions
// ============================================================================

func generateRequestID() string {
	return "req-" + uuid.NewString()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Sends: /api/v1/newsletters/sends/*")
	logx.Info("   ├─ Unsubscribe: /api/v1/newsletters/unsubscribe/verify")
	logx.Info("   ├─ Jobs: /api/v1/jobs/:id")
	logx.Info("   ├─ Health: /health")
	logx.Info("   └─ Docs: /api/v1/docs")
}

// startServer starts the server and blocks until a shutdown signal
func startServer(app *fiber.App, port string) {
	go func() {
		logx.Info("=" + repeatString("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("📚 API Docs: http://localhost:%s/api/v1/docs", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info("=" + repeatString("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
