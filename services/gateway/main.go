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
	"github.com/diagnosis/smartgate/services/gateway/internal/handlers"
	"github.com/diagnosis/smartgate/services/gateway/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Room for multipart framing around the photo.
const bodyOverhead = 1 << 20

func main() {
	cfg := config.Load()

	// Upstream calls may include upload retries and the relay call, so they
	// get the full write timeout.
	upstreamTimeout := cfg.Server.WriteTimeout
	gateProxy := proxy.NewServiceProxy("gate", cfg.Services.Gate, upstreamTimeout)
	notifyProxy := proxy.NewServiceProxy("notify", cfg.Services.Notify, upstreamTimeout)
	summaryProxy := proxy.NewServiceProxy("summary", cfg.Services.Summary, upstreamTimeout)

	h := handlers.New(gateProxy, notifyProxy, summaryProxy, cfg.Storage.MaxPhotoBytes+bodyOverhead)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS(cfg.Gate.CORSAllowedOrigins))
	r.Use(mw.Health)
	r.Use(mw.Metrics("gateway"))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/checkin", h.Gate)
		r.HandleFunc("/auth/*", h.Gate)
		r.HandleFunc("/guard/*", h.Gate)
		r.HandleFunc("/admin/*", h.Gate)

		r.Post("/notify-telegram", h.Notify)

		r.HandleFunc("/summaries/*", h.Summary)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}
