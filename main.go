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

	"join-warden/internal/api"
	"join-warden/internal/approval"
	"join-warden/internal/bot"
	"join-warden/internal/config"
	"join-warden/internal/logging"
	"join-warden/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "join-warden: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_service",
		"service", "join-warden",
		"http_addr", cfg.HTTPAddr,
		"bot_token", logging.MaskToken(cfg.BotToken),
		"target_chat", cfg.TargetChatID,
		"broadcast_enabled", cfg.BroadcastEnabled(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()

	// resolves the bot identity before any update is accepted
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	b, err := bot.New(startupCtx, logger, cfg, st)
	startupCancel()
	if err != nil {
		logger.Error("bot_init_failed", "error", err)
		os.Exit(1)
	}

	sweep := approval.NewSweep(logger, b.Source(), b.Workflow(), cfg.SweepInterval)
	go sweep.Start()

	srv := api.NewServer(logger, cfg, st, sweep)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	go b.Run(ctx)
	go b.NotifyOperator(ctx, "🤖 <b>Bot started</b>")

	logger.Info("service_ready", "addr", cfg.HTTPAddr)

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweep.Stop()
	logger.Info("sweep_stopped")

	// stops long polling
	cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	logger.Info("service_stopped")
}
