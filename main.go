package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackjudge-api/config"
	_ "hackjudge-api/docs" // Swagger docs
	"hackjudge-api/migrations"

	"core"
	"core/metrics"
	"core/notify"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title           Hackathon Judging API
// @version         1.0
// @description     Round scoring and elimination engine for hackathon judging.

// @contact.name   API Support

// @license.name  MIT
// @license.url   http://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cfg.LogSource(logger)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := config.SetupTracing(ctx, cfg.OTELEndpoint, "hackjudge-api")
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	if err := config.ConnectDatabase(cfg, logger); err != nil {
		return err
	}
	if cfg.AutoMigrate {
		migrator, err := migrations.NewMigrator(config.DB, logger)
		if err != nil {
			return err
		}
		migrations.Register(migrator)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var mirrors []notify.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsPublisher.Close()
		mirrors = append(mirrors, natsPublisher)
		logger.Info("mirroring events to NATS", "subject", cfg.NATSSubject)
	}

	module := core.NewModule(config.DB, core.Config{
		TotalRounds:        cfg.TotalRounds,
		RoundCloseSchedule: cfg.RoundCloseSchedule,
		AutoAdvance:        cfg.AutoAdvance,
		ScoreRateLimit:     cfg.ScoreRateLimit,
		ScoreRateBurst:     cfg.ScoreRateBurst,
		StreamKeepAlive:    cfg.StreamKeepAlive,
		Logger:             logger,
		Metrics:            metrics.New(registry),
		Mirrors:            mirrors,
	})

	r := setupRouter(module, config.DB, registry, cfg.CORSAllowedOrigins)

	if err := module.StartScheduler(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		module.StopScheduler()
		module.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	module.StopScheduler()
	// Ends the open /stream connections so Shutdown does not wait on them.
	if err := module.Close(); err != nil {
		logger.Warn("failed to close event broker", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(module *core.Module, db *gorm.DB, gatherer prometheus.Gatherer, origins []string) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	module.SetupRoutes(r)

	// Swagger endpoint
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Message  string `json:"message" example:"Server is running"`
	Database string `json:"database" example:"connected"`
}

// @Summary Health Check
// @Description Check if the server is running and database is connected
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Message:  "Server is running",
				Database: "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{
			Message:  "Server is running",
			Database: "connected",
		})
	}
}
