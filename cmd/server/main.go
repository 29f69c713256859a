package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcart "github.com/robotshop/cart/internal/application/cart"
	"github.com/robotshop/cart/internal/infrastructure/cache"
	"github.com/robotshop/cart/internal/infrastructure/catalogue"
	"github.com/robotshop/cart/internal/infrastructure/config"
	"github.com/robotshop/cart/internal/infrastructure/logger"
	"github.com/robotshop/cart/internal/infrastructure/resilience"
	"github.com/robotshop/cart/internal/interfaces/http/handler"
	"github.com/robotshop/cart/internal/interfaces/http/middleware"
	"github.com/robotshop/cart/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting cart service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Cart store. The connection is lazy; the monitor goroutine flips the
	// readiness flag once redis answers, so the service can start before
	// redis does.
	store := cache.NewRedisCartStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cart.TTL, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go store.Monitor(monitorCtx, cfg.Cart.MonitorInterval)

	// Catalogue client behind its circuit breaker
	breaker := resilience.New(resilience.Settings{
		Name:           "catalogue",
		CallTimeout:    cfg.Breaker.CallTimeout,
		ErrorThreshold: cfg.Breaker.ErrorThreshold,
		Window:         cfg.Breaker.Window,
		Buckets:        cfg.Breaker.Buckets,
		Cooldown:       cfg.Breaker.Cooldown,
		MinRequests:    cfg.Breaker.MinRequests,
	})
	catalogueClient, err := catalogue.NewClient(catalogue.Config{
		BaseURL: cfg.Catalogue.BaseURL(),
	}, breaker, log)
	if err != nil {
		log.Fatal("Failed to create catalogue client", zap.Error(err))
	}

	// Application service
	cartService := appcart.NewService(store, catalogueClient, log)

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	r := router.NewRouter(engine)
	r.Register(handler.NewCartHandler(cartService)).
		Register(handler.NewHealthHandler(cartService, store, catalogueClient))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
