package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/events"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/repository"
)

var ErrEntryNotFound = errors.New("entry not found")

// PhotoRemover deletes the stored photo behind an entry's URL.
type PhotoRemover interface {
	KeyFromURL(raw string) (string, bool)
	Delete(ctx context.Context, key string) error
}

type EntryService interface {
	ListEntries(ctx context.Context, filter domain.EntryFilter, search string, limit, offset int) ([]domain.Entry, error)
	ExportCSV(ctx context.Context, filter domain.EntryFilter, search string) (filename string, data []byte, err error)
	Stats(ctx context.Context) (*domain.EntryStats, error)
	DeleteEntry(ctx context.Context, id int64) error
}

type entryService struct {
	entries repository.EntryRepository
	photos  PhotoRemover
	bus     events.Publisher
	loc     *time.Location
	now     func() time.Time
}

func NewEntryService(entries repository.EntryRepository, photos PhotoRemover, bus events.Publisher, cfg *config.Config) EntryService {
	return &entryService{
		entries: entries,
		photos:  photos,
		bus:     bus,
		loc:     cfg.Location(),
		now:     time.Now,
	}
}

func (s *entryService) ListEntries(ctx context.Context, filter domain.EntryFilter, search string, limit, offset int) ([]domain.Entry, error) {
	start, end := dayBounds(s.now(), s.loc)
	entries, err := s.entries.List(ctx, domain.EntryQuery{
		Filter:   filter,
		Search:   search,
		Limit:    limit,
		Offset:   offset,
		DayStart: start,
		DayEnd:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// ExportCSV renders every entry matching the filter, not just one page.
func (s *entryService) ExportCSV(ctx context.Context, filter domain.EntryFilter, search string) (string, []byte, error) {
	entries, err := s.ListEntries(ctx, filter, search, 0, 0)
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("entries-%s.csv", s.now().In(s.loc).Format("2006-01-02"))
	return filename, []byte(EntriesCSV(entries, s.loc)), nil
}

func (s *entryService) Stats(ctx context.Context) (*domain.EntryStats, error) {
	start, end := dayBounds(s.now(), s.loc)
	stats, err := s.entries.Stats(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("entry stats: %w", err)
	}
	return stats, nil
}

// DeleteEntry removes the row first, then its photo. Once the row is gone a
// failed photo delete is only logged.
func (s *entryService) DeleteEntry(ctx context.Context, id int64) error {
	deleted, err := s.entries.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	if deleted == nil {
		return ErrEntryNotFound
	}

	if photoURL := deleted.PhotoURL(); photoURL != "" {
		if key, ok := s.photos.KeyFromURL(photoURL); !ok {
			logger.WarnContext(ctx, "Entry photo is outside the bucket, not deleting", "entry_id", id, "photo_url", photoURL)
		} else if err := s.photos.Delete(ctx, key); err != nil {
			logger.ErrorContext(ctx, "Entry deleted but photo removal failed", "entry_id", id, "key", key, "error", err)
		}
	}

	if err := s.bus.Publish(ctx, events.EntryDeleted, events.EntryEvent{
		EntryID:     deleted.ID,
		EntryType:   string(deleted.EntryType),
		UserType:    string(deleted.UserType),
		Name:        deleted.Name,
		HouseNumber: deleted.HouseNumber,
		CreatedAt:   deleted.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish entry deleted event", "entry_id", id, "error", err)
	}

	logger.InfoContext(ctx, "Entry deleted", "entry_id", id)
	return nil
}

// dayBounds returns [midnight, next midnight) of now's day in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
