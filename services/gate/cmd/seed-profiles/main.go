// Command seed-profiles creates or refreshes the admin and guard staff
// profiles. Passwords come from the environment or flags and are stored as
// argon2id hashes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/pkg/auth"
	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/database"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/repository"
)

type account struct {
	Email    string
	FullName string
	Role     string
	Password string
}

func main() {
	cfg := config.Load()

	admin := account{Role: auth.RoleAdmin}
	guard := account{Role: auth.RoleGuard}

	flag.StringVar(&admin.Email, "admin-email", envOr("SEED_ADMIN_EMAIL", "admin@example.com"), "admin e-mail")
	flag.StringVar(&admin.FullName, "admin-name", envOr("SEED_ADMIN_NAME", "Admin User"), "admin display name")
	flag.StringVar(&admin.Password, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password")
	flag.StringVar(&guard.Email, "guard-email", envOr("SEED_GUARD_EMAIL", "guard@example.com"), "guard e-mail")
	flag.StringVar(&guard.FullName, "guard-name", envOr("SEED_GUARD_NAME", "Guard User"), "guard display name")
	flag.StringVar(&guard.Password, "guard-password", os.Getenv("SEED_GUARD_PASSWORD"), "guard password")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

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

	if err := seedProfiles(ctx, repository.NewProfileRepository(pool), []account{admin, guard}); err != nil {
		logger.Error("Seeding profiles failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Profiles seeded successfully")
}

// seedProfiles upserts each account with a password. Accounts without one
// are skipped with a warning so a guard can be seeded without touching the
// admin.
func seedProfiles(ctx context.Context, profiles repository.ProfileRepository, accounts []account) error {
	seeded := 0
	for _, a := range accounts {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		if email == "" {
			return fmt.Errorf("%s account has no e-mail", a.Role)
		}
		if a.Password == "" {
			logger.Warn("No password given, skipping profile", "email", email, "role", a.Role)
			continue
		}

		hash, err := auth.HashPassword(a.Password)
		if err != nil {
			return fmt.Errorf("hash %s password: %w", a.Role, err)
		}

		p, err := profiles.Upsert(ctx, &domain.Profile{
			Email:        email,
			FullName:     a.FullName,
			Role:         a.Role,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("upsert %s: %w", email, err)
		}
		logger.Info("Profile linked", "email", email, "profile_id", p.ID, "role", a.Role)
		seeded++
	}
	if seeded == 0 {
		return errors.New("no profiles seeded, set SEED_ADMIN_PASSWORD or SEED_GUARD_PASSWORD")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
