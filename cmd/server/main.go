package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/action/builtin"
	"github.com/gyaneshwarpardhi/simflow/internal/api"
	"github.com/gyaneshwarpardhi/simflow/internal/catalog"
	"github.com/gyaneshwarpardhi/simflow/internal/engine"
	"github.com/gyaneshwarpardhi/simflow/internal/index"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("catalog", "configs/catalog.yaml", "Path to handler catalog YAML")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Action registry ───────────────────────────────────────────────────────
	reg := action.NewRegistry()
	for _, e := range builtin.All() {
		reg.Register(e)
	}

	// ── Load catalog ──────────────────────────────────────────────────────────
	loader, err := catalog.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load catalog", "err", err)
		os.Exit(1)
	}
	cfg := loader.Catalog()
	if err := catalog.Validate(cfg, reg); err != nil {
		slog.Error("catalog validation failed", "err", err)
		os.Exit(1)
	}

	// ── Build initial index ───────────────────────────────────────────────────
	ix, err := index.Build(cfg)
	if err != nil {
		slog.Error("failed to build handler index", "err", err)
		os.Exit(1)
	}
	slog.Info("handler index built", "handlers", ix.Len(), "scripts", len(cfg.Scripts))

	// ── Engine + live stream ──────────────────────────────────────────────────
	hub := api.NewHub()
	warn := func(msg string) {
		slog.Warn(msg)
		hub.Broadcast("warning", msg)
	}
	eng := engine.New(ix, reg, cfg.Engine, warn)
	eng.World().SetOutputObserver(func(line string) {
		hub.Broadcast("output", line)
	})

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *catalog.Catalog) {
		if err := catalog.Validate(newCfg, reg); err != nil {
			slog.Warn("hot-reload skipped: catalog invalid", "err", err)
			return
		}
		newIx, err := index.Build(newCfg)
		if err != nil {
			slog.Warn("hot-reload skipped: index build failed", "err", err)
			return
		}
		eng.SwapIndex(newIx)
		slog.Info("catalog hot-reloaded", "handlers", newIx.Len())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("catalog watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── Tick loop ─────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)
	slog.Info("engine started", "tick_ms", cfg.Engine.TickMs, "guard_budget", cfg.Engine.GuardBudget)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader, hub)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop the tick loop
	hub.Close()
	slog.Info("goodbye")
}
