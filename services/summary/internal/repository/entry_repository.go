package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntryRepository reads the gate's entries table for summaries.
type EntryRepository interface {
	KindsBetween(ctx context.Context, start, end time.Time) ([]domain.EntryKind, error)
}

type entryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) EntryRepository {
	return &entryRepository{pool: pool}
}

func (r *entryRepository) KindsBetween(ctx context.Context, start, end time.Time) ([]domain.EntryKind, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT entry_type, user_type FROM entries
		WHERE created_at >= $1 AND created_at <= $2`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query entry kinds: %w", err)
	}
	defer rows.Close()

	var kinds []domain.EntryKind
	for rows.Next() {
		var k domain.EntryKind
		if err := rows.Scan(&k.EntryType, &k.UserType); err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, rows.Err()
}
