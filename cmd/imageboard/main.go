package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/imageboard/api"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/cache"
	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/session"
	"github.com/use-agent/imageboard/web"
	"github.com/use-agent/imageboard/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("imageboard starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"cms", cfg.CMS.URL,
		"locales", cfg.I18n.SupportedLocales,
	)

	// ── 3. CMS client, feed cache and board service ─────────────────
	client := cms.New(cfg.CMS, nil)
	feed := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer feed.Close()
	svc := board.New(client, feed, cfg.CMS, cfg.Upload)

	// ── 4. Locales, sessions, templates ─────────────────────────────
	catalog, err := i18n.New(cfg.I18n)
	if err != nil {
		slog.Error("failed to load message catalogs", "error", err)
		os.Exit(1)
	}
	renderer, err := web.New()
	if err != nil {
		slog.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	receiver := webhook.NewReceiver(cfg.Webhook.Secret, feed)
	if !receiver.Enabled() {
		slog.Info("cms webhook disabled: CMS_WEBHOOK_SECRET is empty")
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Board:    svc,
		CMS:      client,
		Catalog:  catalog,
		Sessions: session.NewManager(cfg.Session),
		Webhook:  receiver,
		Render:   renderer,
		Static:   web.Static(),
		Started:  time.Now(),
	})

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("imageboard stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
