package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chorus-irc/chorus/internal/api"
	"github.com/chorus-irc/chorus/internal/bot"
	"github.com/chorus-irc/chorus/internal/config"
	"github.com/chorus-irc/chorus/internal/llm"
	"github.com/chorus-irc/chorus/internal/persona"
	"github.com/chorus-irc/chorus/internal/store"
	"github.com/chorus-irc/chorus/internal/team"
	"github.com/chorus-irc/chorus/internal/transport"
)

// runBots wires the full runtime for a set of bot configurations and
// blocks until shutdown: transcript archive, per-bot sessions, the
// team supervisor, and the optional admin API.
func runBots(cfgs []*config.Bot) error {
	settings := config.LoadSettings()
	logger := slog.Default()

	var repo store.Repository
	var transcript bot.TranscriptFunc
	if settings.DBPath != "" {
		r, err := store.NewSQLite(settings.DBPath)
		if err != nil {
			return fmt.Errorf("initialize transcript archive: %w", err)
		}
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				slog.Error("failed to close transcript archive", "error", closeErr)
			}
		}()
		if err := r.Ping(context.Background()); err != nil {
			return fmt.Errorf("transcript archive health check: %w", err)
		}
		archiver := store.NewArchiver(r, 256, logger)
		defer func() {
			if closeErr := archiver.Close(); closeErr != nil {
				slog.Error("failed to close transcript writer", "error", closeErr)
			}
		}()
		repo = r
		transcript = archiver.Record
		slog.Info("transcript archive enabled", "path", settings.DBPath)
	}

	runners := make([]team.Runner, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := persona.FromConfig(cfg)
		if err != nil {
			return err
		}
		completer, err := llm.NewClient(cfg.LLMNode, cfg.Model, settings.LLMTimeout, logger)
		if err != nil {
			return fmt.Errorf("bot %s: %w", cfg.Nick, err)
		}
		runners = append(runners, bot.NewSession(bot.Options{
			Config:         cfg,
			Persona:        p,
			Dialer:         dialerFor(cfg),
			Completer:      completer,
			Logger:         logger,
			Transcript:     transcript,
			SendInterval:   settings.SendInterval,
			SendQueueSize:  settings.SendQueueSize,
			ConnectTimeout: settings.ConnectTimeout,
		}))
	}

	sup := team.New(runners, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if settings.AdminAddr != "" {
		r := chi.NewRouter()
		r.Use(chiMiddleware.RequestID)
		r.Use(chiMiddleware.RealIP)
		r.Use(chiMiddleware.Recoverer)
		r.Use(chiMiddleware.Heartbeat("/health"))
		api.NewHandler(sup, repo).RegisterRoutes(r)

		srv = &http.Server{
			Addr:         settings.AdminAddr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			slog.Info("admin API listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("admin API failed", "error", err)
			}
		}()
	}

	slog.Info("starting team", "bots", len(runners))
	err := sup.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Error("admin API forced to shut down", "error", shutdownErr)
		}
	}

	if err != nil {
		return err
	}
	slog.Info("team stopped")
	return nil
}

func dialerFor(cfg *config.Bot) transport.Dialer {
	if cfg.WebSocketURL != "" {
		return &transport.WebSocketDialer{URL: cfg.WebSocketURL}
	}
	return &transport.TCPDialer{Host: cfg.Host, Port: cfg.Port, TLS: cfg.TLS}
}
