package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ridepool-backend/internal/api/grpc"
	httpapi "ridepool-backend/internal/api/http"
	"ridepool-backend/internal/app"
	"ridepool-backend/internal/config"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/jobs"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/scheduler"
	"ridepool-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := pflag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := pflag.Bool("with-scheduler", false, "Also run the rolling ride job in this process")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Ridepool Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "storage", cfg.Storage.Type, "timezone", cfg.Scheduler.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(cfg.Server.WebSocketBuffer)
	a, err := app.Build(ctx, cfg, hub)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Initialize Security
	var tokenManager security.TokenManager
	if cfg.Auth.TrustUserHeader {
		logger.Warn("Trusting X-User-ID header; do not use in production")
	} else {
		tokenManager = security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	}

	server := httpapi.NewServer(&httpapi.Services{
		Contract:       a.Contract,
		Ride:           a.Ride,
		Request:        a.Request,
		Recommendation: a.Recommendation,
		Ledger:         a.Ledger,
	}, tokenManager, hub, cfg)

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Set up gRPC health server
	var health *grpc.HealthServer
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		health = grpc.NewHealthServer(a.Ping)
		go health.Watch(ctx, 10*time.Second)
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	var sched *scheduler.Scheduler
	if *withScheduler {
		sched = scheduler.NewScheduler(cfg.Location())
		runner := jobs.NewJobRunner(&jobs.Services{Contract: a.Contract}, cfg)
		if err := runner.Register(sched); err != nil {
			log.Fatalf("Failed to register jobs: %v", err)
		}
		sched.Start()
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceSeconds)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if health != nil {
		health.Stop()
	}
	if sched != nil {
		sched.Stop()
	}
	logger.Info("Server stopped")
}
