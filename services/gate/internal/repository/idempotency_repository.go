package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository backs the POST idempotency middleware. Keys arrive
// already hashed. A row with a NULL status is a claim whose request is
// still running.
type IdempotencyRepository interface {
	Claim(ctx context.Context, keyHash string, ttl time.Duration) (bool, error)
	Lookup(ctx context.Context, keyHash string) (status int, body []byte, done bool, err error)
	Complete(ctx context.Context, keyHash string, status int, body []byte, ttl time.Duration) error
	Release(ctx context.Context, keyHash string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

// Claim inserts a pending row. An expired row, pending or complete, is
// taken over; a live one makes the claim fail.
func (r *idempotencyRepository) Claim(ctx context.Context, keyHash string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key_hash) DO UPDATE SET
			status_code = NULL,
			body = NULL,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at < now()`,
		keyHash, time.Now().Add(ttl),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *idempotencyRepository) Lookup(ctx context.Context, keyHash string) (int, []byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		status *int
		body   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT status_code, body FROM idempotency_keys WHERE key_hash=$1 AND expires_at > now()`,
		keyHash,
	).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	if status == nil {
		return 0, nil, false, nil
	}
	return *status, body, true, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, keyHash string, status int, body []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE idempotency_keys SET status_code=$2, body=$3, expires_at=$4 WHERE key_hash=$1`,
		keyHash, status, body, time.Now().Add(ttl),
	)
	return err
}

func (r *idempotencyRepository) Release(ctx context.Context, keyHash string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE key_hash=$1 AND status_code IS NULL`,
		keyHash,
	)
	return err
}

func (r *idempotencyRepository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
