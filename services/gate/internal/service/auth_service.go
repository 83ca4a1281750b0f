package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/smartgate/pkg/auth"
	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/validation"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/repository"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	Me(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error)
}

type authService struct {
	profiles repository.ProfileRepository
	config   *config.Config
}

func NewAuthService(profiles repository.ProfileRepository, cfg *config.Config) AuthService {
	return &authService{profiles: profiles, config: cfg}
}

func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := toValidationError(validation.Struct(req)); err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.CheckPassword(req.Password, profile.PasswordHash)
	if err != nil {
		logger.WarnContext(ctx, "Stored password hash could not be checked", "profile_id", profile.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(profile.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := s.profiles.UpdatePasswordHash(ctx, profile.ID, hash); err != nil {
				logger.WarnContext(ctx, "Failed to upgrade legacy password hash", "profile_id", profile.ID, "error", err)
			}
		}
	}

	token, err := auth.NewAccessToken(
		profile.ID.String(),
		profile.Email,
		profile.Role,
		s.config.Auth.JWTSecret,
		s.config.Auth.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	logger.InfoContext(ctx, "Staff logged in", "profile_id", profile.ID, "role", profile.Role)
	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.Auth.AccessTokenTTL.Seconds()),
		Profile:     profile,
		Redirect:    HomeFor(profile.Role),
	}, nil
}

func (s *authService) Me(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// HomeFor is the page a role lands on after login.
func HomeFor(role string) string {
	switch role {
	case auth.RoleAdmin:
		return "/admin"
	case auth.RoleGuard:
		return "/guard"
	default:
		return "/"
	}
}
