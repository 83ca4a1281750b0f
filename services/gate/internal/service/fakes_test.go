package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/relayclient"
	"github.com/google/uuid"
)

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)

func testConfig() *config.Config {
	return &config.Config{
		Gate: config.GateConfig{Timezone: "Asia/Kuala_Lumpur"},
		Storage: config.StorageConfig{
			MaxPhotoBytes:    5 << 20,
			UploadAttempts:   3,
			UploadRetryDelay: time.Millisecond,
		},
		Relay: config.RelayConfig{Timeout: 100 * time.Millisecond},
		Auth:  config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour},
	}
}

type fakeEntryRepo struct {
	mu        sync.Mutex
	created   []*domain.NewEntry
	createErr error
	rows      map[int64]*domain.Entry
	deleteErr error
	listed    []domain.EntryQuery
	nextID    int64
	now       time.Time
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{rows: map[int64]*domain.Entry{}, now: time.Date(2025, 3, 14, 6, 30, 0, 0, time.UTC)}
}

func (f *fakeEntryRepo) Create(_ context.Context, in *domain.NewEntry) (*domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	f.nextID++
	e := &domain.Entry{
		ID:          f.nextID,
		EntryType:   in.EntryType,
		Name:        in.Name,
		HouseNumber: in.HouseNumber,
		PhoneNumber: in.PhoneNumber,
		PlateNumber: in.PlateNumber,
		UserType:    in.UserType,
		OtherReason: in.OtherReason,
		Notes:       in.Notes,
		ReportedBy:  in.ReportedBy,
		CreatedAt:   f.now,
	}
	if in.SelfieURL != "" {
		u := in.SelfieURL
		e.SelfieURL = &u
	}
	f.rows[e.ID] = e
	return e, nil
}

func (f *fakeEntryRepo) GetByID(_ context.Context, id int64) (*domain.Entry, error) {
	return f.rows[id], nil
}

func (f *fakeEntryRepo) List(_ context.Context, q domain.EntryQuery) ([]domain.Entry, error) {
	f.listed = append(f.listed, q)
	out := make([]domain.Entry, 0, len(f.rows))
	for i := int64(1); i <= f.nextID; i++ {
		if e, ok := f.rows[i]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) Delete(_ context.Context, id int64) (*domain.Entry, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	e, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	delete(f.rows, id)
	return e, nil
}

func (f *fakeEntryRepo) Stats(context.Context, time.Time, time.Time) (*domain.EntryStats, error) {
	return &domain.EntryStats{Total: len(f.rows)}, nil
}

type fakeObjectStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	keys     []string
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, _ = io.Copy(io.Discard, body)
	if f.calls <= f.failures {
		return errors.New("storage unavailable")
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type countingUploader struct {
	calls int
}

func (c *countingUploader) Upload(context.Context, string, *domain.Photo, string) (string, error) {
	c.calls++
	return "https://cdn.test/x.jpg", nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []relayclient.Payload
	err      error
	block    bool
}

func (f *fakeNotifier) Notify(ctx context.Context, p relayclient.Payload) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type fakeBus struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeBus) Publish(_ context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeBus) Close() error { return nil }

type fakePhotoRemover struct {
	deleted []string
	err     error
}

func (f *fakePhotoRemover) KeyFromURL(raw string) (string, bool) {
	const base = "https://cdn.test/"
	if !strings.HasPrefix(raw, base) {
		return "", false
	}
	return strings.TrimPrefix(raw, base), true
}

func (f *fakePhotoRemover) Delete(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeProfileRepo struct {
	profiles map[string]*domain.Profile
	rehashed map[uuid.UUID]string
}

func (f *fakeProfileRepo) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	return f.profiles[email], nil
}

func (f *fakeProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	if f.rehashed == nil {
		f.rehashed = map[uuid.UUID]string{}
	}
	f.rehashed[id] = hash
	return nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	f.profiles[p.Email] = p
	return p, nil
}
