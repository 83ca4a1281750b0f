package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	mw "github.com/diagnosis/smartgate/pkg/middleware"
	"github.com/diagnosis/smartgate/pkg/telegram"
	"github.com/diagnosis/smartgate/services/notify/internal/handlers"
	"github.com/diagnosis/smartgate/services/notify/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg := config.Load()

	tg := telegram.NewClient(cfg.Telegram)
	if !tg.Configured() {
		logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, notifications will fail")
	}

	h := handlers.New(relay.New(tg, cfg.Location()))

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.Metrics("notify"))
	r.Use(handlers.AllowAnyOrigin)

	r.Options("/notify-telegram", handlers.Preflight)
	if cfg.Relay.APIKey != "" {
		r.With(mw.RequireAPIKey([]string{cfg.Relay.APIKey})).Post("/notify-telegram", h.NotifyTelegram)
	} else {
		r.Post("/notify-telegram", h.NotifyTelegram)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.NotifyPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
