package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/summitpay/internal/bootstrap"
	"github.com/cassiomorais/summitpay/internal/controller"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "summitpay-api", "summitpay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	svc := app.Services()

	router := controller.NewRouter(controller.RouterDeps{
		Notifications:    svc.Reconciler,
		Jobs:             svc.Sync,
		Quoter:           svc.Installments,
		Checkout:         svc.Checkout,
		IdempotencyStore: svc.Idempotency,
		HealthChecks: []controller.HealthCheck{
			{Name: "postgres", Check: app.Pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }},
		},
		Metrics: app.Metrics,
		Config:  app.Config,
		Logger:  app.Logger,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
