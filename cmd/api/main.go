package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/bootstrap"
	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/presentation/handlers"
	"github.com/bimakw/holdings-reconciler/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := bootstrap.NewLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting holdings-reconciler API",
		zap.Int("port", cfg.API.Port),
	)

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	// Create handlers
	balanceHandler := handlers.NewBalanceHandler(app.Balances, logger)
	netTransferHandler := handlers.NewNetTransferHandler(app.NetTransfer, logger)
	transferHandler := handlers.NewTransferHandler(app.Transfers, logger)
	tokenHandler := handlers.NewTokenHandler(app.Tokens, app.Prices, logger)

	var dbChecker, cacheChecker handlers.HealthChecker
	if app.DB != nil {
		dbChecker = app.DB
	}
	if app.Cache != nil {
		cacheChecker = app.Cache
	}
	healthHandler := handlers.NewHealthHandler(dbChecker, cacheChecker)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))
		balanceHandler.RegisterRoutes(r)
		netTransferHandler.RegisterRoutes(r)
		transferHandler.RegisterRoutes(r)
		tokenHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
