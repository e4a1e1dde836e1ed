package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "movienight-backend/docs"
	"movienight-backend/internal/config"
	"movienight-backend/internal/database"
	"movienight-backend/internal/events"
	"movienight-backend/internal/handlers"
	"movienight-backend/internal/repository"
	"movienight-backend/internal/routes"
	"movienight-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// @title Movie Night Backend API
// @version 1.0
// @description Group movie-night coordination: submissions, voting, scheduling and live event streams

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8020
// @BasePath /api/v1
// @schemes http https

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("Could not load .env file: %v", err)
	}

	cfg := config.Load()
	log := setupLogger()

	if err := cfg.Validate(); err != nil {
		log.Warnf("Configuration validation warning: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorf("Error closing database connection: %v", err)
		}
	}()

	// The hub is owned here, at the composition root: mutation handlers
	// publish into it, stream connections subscribe to it. Events stay
	// inside this process unless the AMQP bridge is configured.
	hub := events.NewHub()
	defer hub.Close()

	var broadcaster events.Broadcaster = hub
	if cfg.AMQP.URL != "" {
		bridge, err := events.NewAMQPBroadcaster(cfg.AMQP.URL, hub, log)
		if err != nil {
			log.WithError(err).Warn("AMQP bridge unavailable, events stay single-process")
		} else {
			defer bridge.Close()
			broadcaster = bridge
		}
	}

	cache := config.NewRedisClient(cfg.Redis, log)
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				log.Errorf("Error closing redis client: %v", err)
			}
		}()
	}

	movieRepo := repository.NewMovieRepository(db)
	nightRepo := repository.NewMovieNightRepository(db)
	userRepo := repository.NewUserRepository(db)

	tmdb := services.NewTMDBService(cfg.TMDB, log)
	movieService := services.NewMovieService(movieRepo, userRepo, tmdb, broadcaster, log)
	nightService := services.NewMovieNightService(nightRepo, movieRepo, broadcaster, cache, cfg.Redis, log)

	movieHandler := handlers.NewMovieHandler(movieService, log)
	nightHandler := handlers.NewMovieNightHandler(nightService, log)
	streamHandler := handlers.NewStreamHandler(hub, log)

	var uploadHandler *handlers.UploadHandler
	if cfg.MinIO.Endpoint != "" {
		posters, err := services.NewPosterStore(&cfg.MinIO, log)
		if err != nil {
			log.WithError(err).Warn("Poster store unavailable, uploads disabled")
		} else {
			uploadHandler = handlers.NewUploadHandler(posters, log)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Movie Night Backend API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler(log),
	})

	setupMiddleware(app)

	app.Get("/health", healthCheckHandler(db))
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	routes.Setup(app, cfg.Auth.JWTSecret, movieHandler, nightHandler, streamHandler, uploadHandler)

	go gracefulShutdown(app, hub, log)

	log.Infof("Movie Night Backend API starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
}

func setupLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	if os.Getenv("GO_ENV") == "dev" || os.Getenv("GO_ENV") == "development" {
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}

func setupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS, PATCH",
		AllowCredentials: false,
		MaxAge:           86400,
	}))
}

func healthCheckHandler(db *database.Database) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "healthy"
		if err := db.HealthCheck(); err != nil {
			dbStatus = "unhealthy"
		}

		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "movienight-backend",
			"version":   "1.0.0",
			"database":  dbStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func customErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"status": code,
		}).Error("Request error")

		return c.Status(code).JSON(fiber.Map{
			"status":  "error",
			"code":    code,
			"message": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, hub *events.Hub, log *logrus.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Closing the hub ends every open stream so shutdown does not wait on
	// long-lived connections.
	hub.Close()

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}

	log.Info("Server shutdown complete")
}
