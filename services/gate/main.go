package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/smartgate/pkg/auth"
	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/database"
	"github.com/diagnosis/smartgate/pkg/events"
	"github.com/diagnosis/smartgate/pkg/logger"
	mw "github.com/diagnosis/smartgate/pkg/middleware"
	"github.com/diagnosis/smartgate/pkg/storage"
	"github.com/diagnosis/smartgate/services/gate/internal/handlers"
	"github.com/diagnosis/smartgate/services/gate/internal/media"
	"github.com/diagnosis/smartgate/services/gate/internal/relayclient"
	"github.com/diagnosis/smartgate/services/gate/internal/repository"
	"github.com/diagnosis/smartgate/services/gate/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const idempotencySweepInterval = time.Hour

func main() {
	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Connect to event bus
	eventBus, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to configure object storage", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	entryRepo := repository.NewEntryRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	// Initialize services
	uploader := media.NewUploader(store, cfg.Storage)
	relay := relayclient.New(cfg.Relay)
	checkInService := service.NewCheckInService(entryRepo, uploader, relay, eventBus, cfg)
	entryService := service.NewEntryService(entryRepo, store, eventBus, cfg)
	authService := service.NewAuthService(profileRepo, cfg)

	h := handlers.New(checkInService, entryService, authService, cfg)

	clientIP, err := mw.TrustedClientIP(cfg.Gate.TrustedProxies)
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gate"))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.Metrics("gate"))
	r.Use(mw.CORS(cfg.Gate.CORSAllowedOrigins))

	r.With(
		mw.RateLimitByIP(cfg.Gate.CheckInRateLimit, clientIP),
		mw.Idempotency(idempotencyRepo, clientIP),
	).Post("/checkin", h.CheckIn)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(h.RequireRole("")).Get("/me", h.Me)
	})

	r.Route("/guard", func(r chi.Router) {
		r.Use(h.RequireRole(auth.RoleGuard))
		r.Get("/entries", h.ListEntries)
		r.With(mw.Idempotency(idempotencyRepo, clientIP)).Post("/entries/forced", h.ReportForcedEntry)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireRole(auth.RoleAdmin))
		r.Get("/entries", h.ListEntries)
		r.Get("/entries/export.csv", h.ExportEntries)
		r.Get("/stats", h.Stats)
		r.Delete("/entries/{id}", h.DeleteEntry)
	})

	go sweepIdempotencyKeys(ctx, idempotencyRepo)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.GatePort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gate service...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gate service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gate service", "port", cfg.Server.GatePort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gate service error", "error", err)
		os.Exit(1)
	}
}

func sweepIdempotencyKeys(ctx context.Context, repo repository.IdempotencyRepository) {
	ticker := time.NewTicker(idempotencySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanupExpired(ctx)
			if err != nil {
				logger.Error("Failed to clean up idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired idempotency keys removed", "count", n)
			}
		}
	}
}
