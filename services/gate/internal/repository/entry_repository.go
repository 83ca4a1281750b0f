package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntryRepository interface {
	Create(ctx context.Context, e *domain.NewEntry) (*domain.Entry, error)
	GetByID(ctx context.Context, id int64) (*domain.Entry, error)
	List(ctx context.Context, q domain.EntryQuery) ([]domain.Entry, error)
	Delete(ctx context.Context, id int64) (*domain.Entry, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (*domain.EntryStats, error)
}

type entryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) EntryRepository {
	return &entryRepository{pool: pool}
}

const entryCols = `id, entry_type, name, house_number, phone_number, plate_number,
user_type, other_reason, notes, selfie_url, reported_by, created_at`

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.EntryType, &e.Name, &e.HouseNumber, &e.PhoneNumber, &e.PlateNumber,
		&e.UserType, &e.OtherReason, &e.Notes, &e.SelfieURL, &e.ReportedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entryRepository) Create(ctx context.Context, in *domain.NewEntry) (*domain.Entry, error) {
	const q = `INSERT INTO entries (
		entry_type, name, house_number, phone_number, plate_number,
		user_type, other_reason, notes, selfie_url, reported_by
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10)
	RETURNING ` + entryCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanEntry(r.pool.QueryRow(ctx, q,
		in.EntryType, in.Name, in.HouseNumber, in.PhoneNumber, in.PlateNumber,
		in.UserType, in.OtherReason, in.Notes, in.SelfieURL, in.ReportedBy,
	))
}

func (r *entryRepository) GetByID(ctx context.Context, id int64) (*domain.Entry, error) {
	const q = `SELECT ` + entryCols + ` FROM entries WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := scanEntry(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *entryRepository) List(ctx context.Context, query domain.EntryQuery) ([]domain.Entry, error) {
	q, args := buildListQuery(query)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// buildListQuery turns a filter into SQL. Search matches name, house number
// or notes case-insensitively; LIKE wildcards in the term are escaped.
func buildListQuery(query domain.EntryQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch query.Filter {
	case domain.FilterToday:
		where = append(where, "created_at >= "+arg(query.DayStart)+" AND created_at < "+arg(query.DayEnd))
	case domain.FilterVisitor:
		where = append(where, "user_type = "+arg(string(domain.UserVisitor)))
	case domain.FilterResident:
		where = append(where, "user_type IN ("+arg(string(domain.UserResidentUnpaid))+", "+arg(string(domain.UserResidentPaid))+")")
	case domain.FilterVendor:
		where = append(where, "user_type = "+arg(string(domain.UserVendor)))
	case domain.FilterOther:
		where = append(where, "user_type = "+arg(string(domain.UserOther)))
	case domain.FilterForced:
		where = append(where, "entry_type = "+arg(string(domain.EntryForcedByGuard)))
	}

	if s := strings.TrimSpace(query.Search); s != "" {
		p := arg("%" + escapeLike(strings.ToLower(s)) + "%")
		where = append(where, "(lower(name) LIKE "+p+" OR lower(house_number) LIKE "+p+" OR lower(notes) LIKE "+p+")")
	}

	q := `SELECT ` + entryCols + ` FROM entries`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if query.Limit > 0 {
		q += ` LIMIT ` + arg(query.Limit)
	}
	if query.Offset > 0 {
		q += ` OFFSET ` + arg(query.Offset)
	}
	return q, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Delete removes the row and returns it so the caller can clean up the
// photo. A missing id yields nil, nil.
func (r *entryRepository) Delete(ctx context.Context, id int64) (*domain.Entry, error) {
	const q = `DELETE FROM entries WHERE id=$1 RETURNING ` + entryCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := scanEntry(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *entryRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (*domain.EntryStats, error) {
	const q = `SELECT
		count(*),
		count(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
		count(*) FILTER (WHERE entry_type <> 'forced_by_guard' AND user_type = 'visitor'),
		count(*) FILTER (WHERE entry_type <> 'forced_by_guard' AND user_type LIKE 'resident%'),
		count(*) FILTER (WHERE entry_type <> 'forced_by_guard' AND user_type = 'vendor'),
		count(*) FILTER (WHERE entry_type <> 'forced_by_guard' AND user_type = 'other'),
		count(*) FILTER (WHERE entry_type = 'forced_by_guard')
	FROM entries`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.EntryStats
	err := r.pool.QueryRow(ctx, q, dayStart, dayEnd).Scan(
		&s.Total, &s.Today, &s.Visitors, &s.Residents, &s.Vendors, &s.Others, &s.Forced,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
