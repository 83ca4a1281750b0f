package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Upsert(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileCols = `id, email, password_hash, full_name, role, created_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Role, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, `UPDATE profiles SET password_hash=$2 WHERE id=$1`, id, hash)
	return err
}

// Upsert creates the profile or, when the e-mail already exists, refreshes
// its name, role and password. The stored id is kept.
func (r *profileRepository) Upsert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	const q = `INSERT INTO profiles (id, email, password_hash, full_name, role)
	VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (email) DO UPDATE SET
		password_hash = EXCLUDED.password_hash,
		full_name = EXCLUDED.full_name,
		role = EXCLUDED.role
	RETURNING ` + profileCols

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanProfile(r.pool.QueryRow(ctx, q, id, strings.ToLower(p.Email), p.PasswordHash, p.FullName, p.Role))
}
