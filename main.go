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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/controllers"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/middleware"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Stitchwise API server", "env", cfg.GoEnv)

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return err
	}
	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migration completed")

	if cfg.S3Enabled() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			return err
		}
		services.InitImageService(s3Service)
		logger.Info("image storage enabled", "bucket", cfg.AWSS3Bucket)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, uploads are disabled")
	}

	locker, closeLocker, err := newOrderLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	rules, err := config.LoadBadgeRules(cfg.BadgeRulesFile)
	if err != nil {
		return err
	}
	ledger := services.NewReputationLedger(db, services.NewBadgeEvaluator(rules), services.NewReviewStore(), logger)
	policy := services.StatusPolicy{Strict: cfg.StrictStatusTransitions}
	services.SetOrderService(services.NewOrderService(db, ledger, locker, policy, logger))

	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		relay := services.NewEventRelay(db, publisher, cfg.EventRelayBatch, logger)
		go relay.Run(ctx, cfg.EventRelayInterval)
	} else {
		logger.Warn("RABBITMQ_URL not set, order events stay in the outbox")
	}

	auth, err := middleware.EnsureValidToken(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, logger, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server is listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newOrderLocker uses Redis when configured so several API instances share
// order locks, and an in-process locker otherwise
func newOrderLocker(cfg *config.Config, logger *slog.Logger) (services.OrderLocker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, order locks are process-local")
		return services.NewMemoryOrderLocker(cfg.OrderLockWait), func() {}, nil
	}

	locker, err := services.NewRedisOrderLocker(cfg.RedisURL, cfg.OrderLockTTL, cfg.OrderLockWait, logger)
	if err != nil {
		return nil, nil, err
	}
	return locker, func() { _ = locker.Close() }, nil
}

// setupRouter builds the HTTP handler. auth validates the bearer token on
// protected routes.
func setupRouter(cfg *config.Config, logger *slog.Logger, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
	}
	controllers.RegisterRoutes(v1, auth)

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stitchwise API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not initialized",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
