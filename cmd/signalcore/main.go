// Command signalcore runs the in-memory WebRTC signaling core: a bounded
// client/room registry driven by a single dispatcher goroutine, fronted by
// a gin HTTP server that upgrades WebSocket connections.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fathomrtc/signalcore/internal/config"
	"github.com/fathomrtc/signalcore/internal/health"
	"github.com/fathomrtc/signalcore/internal/logging"
	"github.com/fathomrtc/signalcore/internal/middleware"
	"github.com/fathomrtc/signalcore/internal/ratelimit"
	"github.com/fathomrtc/signalcore/internal/signaling"
	"github.com/fathomrtc/signalcore/internal/transport"
)

func main() {
	envPaths := []string{".env", "../../.env", "../.env"}
	var envLoaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded environment file", "path", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		slog.Warn("no .env file found, relying on environment variables")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	dispatcher := signaling.NewDispatcher(signaling.Config{
		MaxClients:           cfg.MaxClients,
		MaxRooms:             cfg.MaxRooms,
		ClientIdleTimeout:    cfg.ClientIdleTimeout,
		IngressQueueCapacity: cfg.IngressQueueCapacity,
	})

	runCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go dispatcher.Run(runCtx)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		slog.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	router.Use(cors.New(corsConfig))

	transport.NewServer(dispatcher, rateLimiter, cfg.AllowedOrigins).RegisterRoutes(router)

	healthHandler := health.NewHandler(dispatcher, cfg.IngressQueueCapacity)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("signalcore starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	stopDispatcher()
	dispatcher.Stop()

	slog.Info("signalcore exited")
}
