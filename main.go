package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"albiondata-api/internal/api"
	"albiondata-api/internal/cache"
	"albiondata-api/internal/config"
	"albiondata-api/internal/database"
	"albiondata-api/internal/logger"
	"albiondata-api/internal/metrics"
	"albiondata-api/internal/services/prices"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel, cfg.IsProduction())
	logr.WithFields(map[string]interface{}{
		"environment": cfg.Environment,
		"max_age":     cfg.MaxAgeDays,
		"lookback":    cfg.HistoryLookbackDays,
	}).Info("Starting albiondata api")

	db, err := database.Initialize(cfg.DatabaseURL, logr, cfg.AutoMigrate)
	if err != nil {
		logr.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	store := database.NewStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var responseCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logr.WithError(err).Warn("Redis unavailable, response cache disabled")
		} else {
			defer redisCache.Close()
			responseCache = redisCache
			logr.WithField("addr", cfg.RedisAddr).Info("Response cache enabled")
		}
	}

	svc := prices.NewService(store, responseCache, prices.Options{
		MaxAge:           cfg.MaxAge(),
		HistoryLookback:  cfg.HistoryLookback(),
		DefaultLocations: cfg.Locations(),
		CacheTTL:         cfg.CacheTTL,
	}, logr)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestID(), logger.GinMiddleware(logr), metrics.GinMiddleware(), api.CORS())

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logr)
	limiter.StartCleanup(ctx, 10*time.Minute)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes
	apiGroup := r.Group("/api", limiter.Handler())
	api.SetupRoutes(apiGroup, svc, api.Options{
		InvalidItemResponse: cfg.InvalidItemResponse,
		StreamInterval:      cfg.StreamInterval,
	}, logr)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logr.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.WithError(err).Error("Graceful shutdown failed")
	}
}
