package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketing/api/routes"
	_ "ticketing/docs"
	"ticketing/internal/notifications"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/sweeper"
	"ticketing/pkg/logger"
	"ticketing/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title Ticketing API
// @version 1.0
// @description Seat reservation, ticketing and payment reconciliation
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	if err := middleware.RegisterValidators(); err != nil {
		appLogger.Error("failed to register validators", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// the release script is loaded up front so the first sweep skips the EVAL fallback
	if db.Redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := sweeper.NewRedisLock(db.Redis).PreloadScripts(ctx); err != nil {
			appLogger.Warn("Failed to preload Redis Lua scripts", slog.Any("error", err))
		} else {
			appLogger.Info("✅ Redis Lua scripts preloaded")
		}
		cancel()
	}

	publisher := newPublisher(cfg, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing event publisher", slog.Any("error", err))
		}
	}()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), &ratelimit.Config{
			Enabled:             cfg.RateLimit.Enabled,
			WindowDuration:      cfg.RateLimit.WindowDuration,
			DefaultRequests:     cfg.RateLimit.DefaultRequests,
			PublicRequests:      cfg.RateLimit.PublicRequests,
			ReservationRequests: cfg.RateLimit.ReservationRequests,
			PaymentRequests:     cfg.RateLimit.PaymentRequests,
			WebhookRequests:     cfg.RateLimit.WebhookRequests,
			AdminRequests:       cfg.RateLimit.AdminRequests,
			WhitelistedIPs:      cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("reservation_requests", cfg.RateLimit.ReservationRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	appRouter := routes.NewRouter(cfg, db, publisher)
	var jobs *sweeper.JobProcessor
	if cfg.Sweeper.Enabled {
		jobs = sweeper.NewJobProcessor(appRouter.SweepService(), cfg.Sweeper.Interval)
		appRouter.SetSweepJobs(jobs)
	}
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        setupRouter(cfg, appRouter, rateLimiter),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("redis_cache", db.Redis != nil),
			slog.Bool("payment_gateway", cfg.PaymentGatewayEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if jobs != nil {
		jobs.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			jobs.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", slog.Any("error", err))
	}
	appLogger.Info("Server exited gracefully")
}

// newPublisher returns the Kafka publisher, or a log-only one when Kafka is
// disabled or unreachable.
func newPublisher(cfg *config.Config, appLogger *logger.Logger) notifications.Publisher {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, ticket events are logged only")
		return notifications.NewLogPublisher(appLogger)
	}

	publisher, err := notifications.NewKafkaPublisher(notifications.DefaultKafkaProducerConfig(cfg.Kafka))
	if err != nil {
		appLogger.Error("Failed to initialize Kafka publisher, falling back to logs", slog.Any("error", err))
		return notifications.NewLogPublisher(appLogger)
	}
	appLogger.Info("Kafka publisher initialized",
		slog.String("topic", cfg.Kafka.Topic),
		slog.Any("brokers", cfg.Kafka.Brokers),
	)
	return publisher
}

func setupRouter(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.HeaderSessionID, middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLog := l.WithRequestID(c.GetString("request_id"))
		if c.Writer.Status() >= http.StatusInternalServerError && len(c.Errors) > 0 {
			reqLog.LogHTTPError(c, c.Errors.Last(), c.Writer.Status())
		}
		reqLog.LogHTTPRequest(c, time.Since(start))
	}
}
