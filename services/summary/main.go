package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/database"
	"github.com/diagnosis/smartgate/pkg/events"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/mailer"
	mw "github.com/diagnosis/smartgate/pkg/middleware"
	"github.com/diagnosis/smartgate/pkg/telegram"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/diagnosis/smartgate/services/summary/internal/handlers"
	"github.com/diagnosis/smartgate/services/summary/internal/repository"
	"github.com/diagnosis/smartgate/services/summary/internal/scheduler"
	"github.com/diagnosis/smartgate/services/summary/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg := config.Load()
	loc := cfg.Location()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	summaries := service.NewSummaryService(
		repository.NewEntryRepository(pool),
		telegram.NewClient(cfg.Telegram),
		mailer.New(cfg.Email),
		loc,
	)

	live := service.NewLiveTally(loc)
	if today, err := summaries.Build(ctx, domain.PeriodDaily); err != nil {
		logger.Warn("Could not seed live tally", "error", err)
	} else {
		live.Seed(today.Counts)
	}
	if err := live.Subscribe(eventBus); err != nil {
		logger.Error("Failed to subscribe to entry events", "error", err)
		os.Exit(1)
	}

	var sched *scheduler.Scheduler
	if cfg.Summary.Enabled {
		sched = scheduler.New(summaries, loc)
		if err := sched.Register(cfg.Summary); err != nil {
			logger.Error("Invalid summary schedule", "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	h := handlers.New(summaries, live)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("summary"))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.Metrics("summary"))
	r.Use(mw.CORS([]string{"*"}))

	r.Route("/summaries", func(r chi.Router) {
		r.Get("/live", h.Live)
		r.With(mw.RequireAPIKey(cfg.Summary.TriggerKeys)).Post("/{period}", h.Trigger)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.SummaryPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down summary service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if sched != nil {
			sched.Stop(ctx)
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Summary service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting summary service", "port", cfg.Server.SummaryPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Summary service error", "error", err)
		os.Exit(1)
	}
}
