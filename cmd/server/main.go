package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skycast/backend/internal/config"
	"github.com/skycast/backend/internal/delivery/http"
	"github.com/skycast/backend/internal/repository/postgres"
	"github.com/skycast/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := setupLogger(cfg)
	slog.SetDefault(log)

	// Fetch-log storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo service.FetchLogRepository = postgres.NewMockRepository()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("could not connect to database, keeping fetch logs in memory", "error", err)
		} else {
			defer pool.Close()
			pg := postgres.NewPostgresRepository(pool)
			if err := pg.Migrate(ctx); err != nil {
				log.Warn("database migration failed, keeping fetch logs in memory", "error", err)
			} else {
				repo = pg
				log.Info("connected to PostgreSQL")
			}
		}
	}

	// Dependency Injection: Services
	upstream := service.NewUpstreamClient(cfg.ForecastBaseURL, cfg.AirQualityBaseURL, cfg.HTTPTimeout)
	weatherSvc := service.NewWeatherService(upstream, log)
	locationSvc := service.NewLocationService(cfg.GeocodingBaseURL, cfg.HTTPTimeout, log)
	locator := service.NewLocatorCache(cfg.GeoTimeout, cfg.GeoMaxAge)
	dashboardSvc := service.NewDashboardService(weatherSvc, locationSvc, repo, service.DashboardConfig{
		DefaultLocation: cfg.DefaultLocation,
		Unit:            cfg.DefaultUnit,
		SearchDebounce:  cfg.SearchDebounce,
		SearchTimeout:   cfg.HTTPTimeout,
	}, log)

	// Initial cycle for the default location
	initial, _ := dashboardSvc.Refresh(ctx)
	log.Info("initial weather loaded", "location", cfg.DefaultLocation.Name, "source", initial.Source)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "SkyCast API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.HTTPTimeout,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Client-Id",
	}))

	// Routes
	handler := http.NewHandler(dashboardSvc, weatherSvc, locationSvc, locator, repo)
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	dashboardSvc.Close()
	log.Info("server exited gracefully")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	case "":
		if cfg.IsDevelopment() {
			opts.Level = slog.LevelDebug
		}
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
