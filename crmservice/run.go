// Package crmservice boots the CRM backend: configuration, storage, command
// services, the automation engine, and the HTTP server.
package crmservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relata/relata/internal/api"
	"github.com/relata/relata/internal/automation"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/config"
	"github.com/relata/relata/internal/health"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/platform/logger"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/postgres"
	"github.com/relata/relata/internal/store/sqlite"
)

// Run starts the service and blocks until SIGINT/SIGTERM.
func Run() error {
	log := logger.New("crm-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.DBDriver).Msg("storage unavailable")
		return err
	}

	storeChecker := health.NewChecker("store", pingerFunc(st.Ping), log)
	go storeChecker.Start(ctx, 30*time.Second)
	healthSvc := health.NewService(storeChecker)

	clk := clock.NewMonotonic()
	svcs := commands.NewServices(st, clk)

	if cfg.AutomationEnabled {
		engine := automation.NewEngine(st, clk, automation.Config{
			PollInterval:    time.Duration(cfg.PollIntervalMs) * time.Millisecond,
			BatchSize:       cfg.BatchSize,
			InitialLookback: time.Duration(cfg.InitialLookbackMs) * time.Millisecond,
		}, log)
		go func() {
			if err := engine.Run(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("automation engine exited")
			}
		}()
	} else {
		log.Info().Msg("automation engine disabled")
	}

	router := api.NewRouter(st, svcs, healthSvc, cfg.MaxPageSize)
	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(ctx, cfg.PostgresDSN)
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
}

// pingerFunc adapts the store's Ping method to the health.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) HealthPing(ctx context.Context) error { return f(ctx) }
