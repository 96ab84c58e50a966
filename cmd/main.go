// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/campus-events/eventsvc/internal/config"
	"github.com/campus-events/eventsvc/internal/handler"
	"github.com/campus-events/eventsvc/internal/logger"
	"github.com/campus-events/eventsvc/internal/service"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "eventsvc",
		Usage: "campus event registration API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the postgres schema or mongo indexes and exit",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	log, cleanup := logger.New(cfg.Log)
	return cfg, log, cleanup, nil
}

func migrate(c *cli.Context) error {
	cfg, log, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := openStores(c.Context, cfg.Database, log, true)
	if err != nil {
		return err
	}
	defer st.close()

	log.Info("migration complete", zap.String("driver", cfg.Database.Driver))
	return nil
}

func serve(c *cli.Context) error {
	cfg, log, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	// ── 1. Connect to the store ───────────────────────────────────────────
	st, err := openStores(c.Context, cfg.Database, log, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info("store connected", zap.String("driver", cfg.Database.Driver))

	// ── 2. Wire up layers ────────────────────────────────────────────────
	userSvc := service.NewUserService(st.users, st.events, log)
	eventSvc := service.NewEventService(st.events, st.users, userSvc, log)

	// ── 3. Build the router ───────────────────────────────────────────────
	httpCfg := cfg.App.HTTP
	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, log),
		handler.NewUserHandler(userSvc, log),
		log,
		handler.Options{
			RequestTimeout: time.Duration(httpCfg.RequestTimeoutSec) * time.Second,
			MaxInFlight:    httpCfg.MaxInFlight,
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
		},
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(httpCfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(httpCfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(httpCfg.IdleTimeoutSec) * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
