// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"ticketing/internal/credits"
	"ticketing/internal/events"
	"ticketing/internal/notifications"
	"ticketing/internal/payments"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/internal/sweeper"
	"ticketing/internal/tickets"
	"ticketing/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher

	seatService    seats.Service
	eventService   events.Service
	ticketService  tickets.Service
	paymentService payments.Service
	creditService  credits.Service
	sweepService   sweeper.Service

	sweepJobs *sweeper.JobProcessor
}

// NewRouter builds every service on top of the shared connections
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	r := &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
	r.initServices()
	return r
}

func (r *Router) initServices() {
	pg := r.db.GetPostgreSQL()
	txm := txn.NewManager(pg)

	seatRepo := seats.NewRepository(pg)
	ticketRepo := tickets.NewRepository(pg)
	eventRepo := events.NewRepository(pg)

	var (
		seatOpts  []seats.Option
		eventOpts = []events.Option{events.WithCurrency(r.config.Payment.Currency)}
		locker    sweeper.Locker
	)
	if rdb := r.db.GetRedis(); rdb != nil {
		cacheService := cache.NewService(rdb)
		seatOpts = append(seatOpts, seats.WithCache(cacheService, r.config.Redis.AvailabilityTTL))
		eventOpts = append(eventOpts, events.WithCache(cacheService))
		locker = sweeper.NewRedisLock(rdb)
	}

	r.seatService = seats.NewService(seatRepo, txm, r.config.Reservation, seatOpts...)
	r.eventService = events.NewService(eventRepo, seatRepo, txm, eventOpts...)
	r.ticketService = tickets.NewService(ticketRepo, seatRepo, txm,
		tickets.WithPublisher(r.publisher),
		tickets.WithCurrency(r.config.Payment.Currency),
	)

	paymentOpts := []payments.Option{
		payments.WithPublisher(r.publisher),
		payments.WithAvailability(r.seatService),
	}
	if r.config.PaymentGatewayEnabled() {
		hc := &http.Client{Timeout: r.config.Payment.RequestTimeout}
		paymentOpts = append(paymentOpts,
			payments.WithGateway(payments.NewHTTPGateway(r.config.Payment.ProviderBaseURL, r.config.Payment.AccessToken, hc)))
	}
	r.paymentService = payments.NewService(ticketRepo, seatRepo, txm, r.config.Payment, paymentOpts...)

	r.creditService = credits.NewService(credits.NewRepository(pg), eventRepo, txm,
		credits.WithPublisher(r.publisher),
		credits.WithEventCache(r.eventService),
	)

	sweepOpts := []sweeper.Option{sweeper.WithAvailability(r.seatService)}
	if locker != nil {
		sweepOpts = append(sweepOpts, sweeper.WithLocker(locker))
	}
	r.sweepService = sweeper.NewService(seatRepo, ticketRepo, r.paymentService, txm, r.config.Sweeper, sweepOpts...)
}

// SweepService is shared with the background sweep job
func (r *Router) SweepService() sweeper.Service {
	return r.sweepService
}

// SetSweepJobs exposes the background sweep loop on /status. Call it before
// SetupRoutes.
func (r *Router) SetSweepJobs(jobs *sweeper.JobProcessor) {
	r.sweepJobs = jobs
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if r.config.Metrics.Enabled {
		engine.GET(r.config.Metrics.Path, metrics.Handler())
	}
	if !r.config.IsProduction() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		events.SetupEventRoutes(api, events.NewController(r.eventService), r.config)
		seats.SetupSeatRoutes(api, seats.NewController(r.seatService))
		tickets.SetupTicketRoutes(api, tickets.NewController(r.ticketService), r.config)
		payments.SetupPaymentRoutes(api, payments.NewController(r.paymentService), r.config)
		credits.SetupCreditRoutes(api, credits.NewController(r.creditService), r.config)
		sweeper.SetupSweeperRoutes(api, sweeper.NewController(r.sweepService), r.config)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketing",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketing",
			"cache":     r.db.GetRedis() != nil,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", statusHandler(r.config, r.sweepJobs))
}

func statusHandler(cfg *config.Config, jobs *sweeper.JobProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		sweep := gin.H{"enabled": cfg.Sweeper.Enabled}
		if jobs != nil {
			sweep["job"] = jobs.GetJobStatus()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "operational",
			"api_version":     cfg.APIVersion,
			"payment_gateway": cfg.PaymentGatewayEnabled(),
			"sweeper":         sweep,
			"timestamp":       time.Now(),
		})
	}
}
