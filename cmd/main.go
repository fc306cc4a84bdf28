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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/clock"
	"github.com/Shivanand-hulikatti/society-events/internal/config"
	"github.com/Shivanand-hulikatti/society-events/internal/database"
	"github.com/Shivanand-hulikatti/society-events/internal/feed"
	"github.com/Shivanand-hulikatti/society-events/internal/handler"
	"github.com/Shivanand-hulikatti/society-events/internal/notify"
	"github.com/Shivanand-hulikatti/society-events/internal/repository"
	"github.com/Shivanand-hulikatti/society-events/internal/service"
	"github.com/Shivanand-hulikatti/society-events/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "society-events").Logger()
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// ── 1. Load the store, from PostgreSQL when enabled ───────────────────
	events := store.New()
	var journal service.Journal = service.NopJournal{}
	if cfg.DB.Enabled {
		pool, err := database.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		log.Info().Str("host", cfg.DB.Host).Msg("connected to postgres")

		repo := repository.New(pool, log)
		loaded, err := repo.LoadEvents(ctx)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}
		regs, err := repo.LoadRegistrations(ctx)
		if err != nil {
			return fmt.Errorf("load registrations: %w", err)
		}
		if events, err = store.Seed(loaded, regs); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		journal = repo
		log.Info().Int("events", len(loaded)).Int("registrations", len(regs)).Msg("store loaded")
	}

	// ── 2. Notices ────────────────────────────────────────────────────────
	var publisher notify.Publisher = notify.Nop{}
	if cfg.AMQPURL != "" {
		rabbit, err := notify.NewRabbit(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	c := clock.System{}
	svc := service.NewEventService(events, c, service.Options{
		Location:  loc,
		WeekStart: cfg.Weekday(),
		Feed: feed.Exporter{
			Title:       cfg.SiteTitle,
			Description: cfg.SiteDescription,
			Link:        cfg.SiteURL,
			Domain:      cfg.ICalDomain,
		},
		Journal: journal,
		Log:     log,
	})
	eventHandler := handler.NewEventHandler(svc, publisher, c, log)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(log))
	r.Use(handler.CORS)
	eventHandler.Routes(r)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
