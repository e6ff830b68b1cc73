/*
Package main is the entry point for the development game backend.

It serves the same REST surface as the production backend (health, register, login,
verify, characters) from an in-memory store, so the client gateway and mmoctl can be
exercised locally. It loads configuration, initializes the global logging system,
and shuts down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mmoclient/internal/app/user"
	"mmoclient/internal/configs"
	"mmoclient/internal/handler"
	"mmoclient/internal/pkg/logx"
	"mmoclient/internal/pkg/randx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == configs.EnvDevelopment)

	if cfg.JWTSecret == "" {
		secret, err := randx.Secret()
		if err != nil {
			logx.Fatal(err, "Failed to generate a JWT secret")
		}
		cfg.JWTSecret = secret
		logx.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handler.NewAppDeps(cfg, user.NewStore())
	router := handler.Router(ctx, deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("MMO dev backend starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
