package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/events"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/metrics"
	"github.com/diagnosis/smartgate/pkg/validation"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/media"
	"github.com/diagnosis/smartgate/services/gate/internal/relayclient"
	"github.com/diagnosis/smartgate/services/gate/internal/repository"
	"github.com/google/uuid"
)

const receiptTimeLayout = "Monday, 02 Jan 2006, 03:04 PM"

var ErrPersistFailed = errors.New("failed to save entry")

type Uploader interface {
	Upload(ctx context.Context, folder string, photo *domain.Photo, ownerHint string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, p relayclient.Payload) error
}

type CheckInService interface {
	SubmitCheckIn(ctx context.Context, form domain.CheckInForm, photo *domain.Photo) (*domain.CheckInReceipt, error)
	ReportForcedEntry(ctx context.Context, guardID uuid.UUID, report domain.ForcedEntryReport, photo *domain.Photo) (*domain.CheckInReceipt, error)
}

type checkInService struct {
	entries       repository.EntryRepository
	uploader      Uploader
	notifier      Notifier
	bus           events.Publisher
	loc           *time.Location
	maxPhotoBytes int64
	relayTimeout  time.Duration
}

func NewCheckInService(
	entries repository.EntryRepository,
	uploader Uploader,
	notifier Notifier,
	bus events.Publisher,
	cfg *config.Config,
) CheckInService {
	return &checkInService{
		entries:       entries,
		uploader:      uploader,
		notifier:      notifier,
		bus:           bus,
		loc:           cfg.Location(),
		maxPhotoBytes: cfg.Storage.MaxPhotoBytes,
		relayTimeout:  cfg.Relay.Timeout,
	}
}

// SubmitCheckIn runs validate, upload, persist, notify in that order. Only
// the first three can fail the check-in; relay problems are logged.
func (s *checkInService) SubmitCheckIn(ctx context.Context, form domain.CheckInForm, photo *domain.Photo) (*domain.CheckInReceipt, error) {
	form.Normalize()
	if err := s.validate(&form, photo); err != nil {
		metrics.RecordCheckIn(string(domain.EntryNormal), "invalid")
		return nil, err
	}

	photoURL, err := s.uploader.Upload(ctx, media.FolderSelfies, photo, form.Name)
	if err != nil {
		metrics.RecordCheckIn(string(domain.EntryNormal), "upload_failed")
		logger.ErrorContext(ctx, "Check-in aborted, photo upload failed", "error", err)
		return nil, err
	}

	entry, err := s.entries.Create(ctx, &domain.NewEntry{
		EntryType:   domain.EntryNormal,
		Name:        form.Name,
		HouseNumber: form.HouseNumber,
		PhoneNumber: form.PhoneNumber,
		PlateNumber: form.PlateNumber,
		UserType:    form.Category(),
		OtherReason: form.OtherReason,
		Notes:       form.Notes(),
		SelfieURL:   photoURL,
	})
	if err != nil {
		metrics.RecordCheckIn(string(domain.EntryNormal), "persist_failed")
		logger.WarnContext(ctx, "Entry insert failed, uploaded photo left orphaned", "photo_url", photoURL, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.announce(ctx, entry)
	metrics.RecordCheckIn(string(domain.EntryNormal), "ok")

	logger.InfoContext(ctx, "Visitor checked in", "entry_id", entry.ID, "user_type", entry.UserType)
	return s.receipt(entry), nil
}

// ReportForcedEntry records a guard's report. The photo is mandatory since
// a forced entry must carry evidence.
func (s *checkInService) ReportForcedEntry(ctx context.Context, guardID uuid.UUID, report domain.ForcedEntryReport, photo *domain.Photo) (*domain.CheckInReceipt, error) {
	report.Normalize()
	if err := toValidationError(validation.Struct(report)); err != nil {
		metrics.RecordCheckIn(string(domain.EntryForcedByGuard), "invalid")
		return nil, err
	}
	if verr := s.validatePhoto(photo); verr != nil {
		metrics.RecordCheckIn(string(domain.EntryForcedByGuard), "invalid")
		return nil, verr
	}

	photoURL, err := s.uploader.Upload(ctx, media.FolderForcedEntries, photo, report.Name)
	if err != nil {
		metrics.RecordCheckIn(string(domain.EntryForcedByGuard), "upload_failed")
		logger.ErrorContext(ctx, "Forced entry report aborted, photo upload failed", "error", err)
		return nil, err
	}

	entry, err := s.entries.Create(ctx, &domain.NewEntry{
		EntryType:   domain.EntryForcedByGuard,
		Name:        report.Name,
		HouseNumber: report.HouseNumber,
		UserType:    domain.UserVisitor,
		Notes:       report.Notes,
		SelfieURL:   photoURL,
		ReportedBy:  &guardID,
	})
	if err != nil {
		metrics.RecordCheckIn(string(domain.EntryForcedByGuard), "persist_failed")
		logger.WarnContext(ctx, "Forced entry insert failed, uploaded photo left orphaned", "photo_url", photoURL, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.announce(ctx, entry)
	metrics.RecordCheckIn(string(domain.EntryForcedByGuard), "ok")

	logger.InfoContext(ctx, "Forced entry reported", "entry_id", entry.ID, "guard_id", guardID)
	return s.receipt(entry), nil
}

func (s *checkInService) validate(form *domain.CheckInForm, photo *domain.Photo) error {
	if err := toValidationError(validation.Struct(form)); err != nil {
		return err
	}
	if verr := s.validatePhoto(photo); verr != nil {
		return verr
	}
	return nil
}

func (s *checkInService) validatePhoto(photo *domain.Photo) *domain.ValidationError {
	if photo == nil || len(photo.Data) == 0 {
		return &domain.ValidationError{Field: "photo", Message: "Photo is required"}
	}
	if s.maxPhotoBytes > 0 && photo.Size() > s.maxPhotoBytes {
		return &domain.ValidationError{
			Field:   "photo",
			Message: fmt.Sprintf("Photo must be at most %d MB", s.maxPhotoBytes>>20),
		}
	}
	if _, _, ok := media.DetectImageType(photo.Data); !ok {
		return &domain.ValidationError{Field: "photo", Message: "Photo must be a JPEG, PNG or WebP image"}
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &domain.ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return err
}

// announce notifies the relay and publishes entry.created. The relay call
// runs on a context detached from the request so a closed browser tab does
// not cancel it, bounded by the relay timeout.
func (s *checkInService) announce(ctx context.Context, entry *domain.Entry) {
	relayCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.relayTimeout)
	defer cancel()

	err := s.notifier.Notify(relayCtx, relayclient.Payload{
		Name:        entry.Name,
		HouseNumber: entry.HouseNumber,
		UserType:    string(entry.UserType),
		EntryType:   string(entry.EntryType),
		Timestamp:   entry.CreatedAt,
		SelfieURL:   entry.PhotoURL(),
		Notes:       entry.Notes,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Relay notification failed", "entry_id", entry.ID, "error", err)
	}

	if err := s.bus.Publish(ctx, events.EntryCreated, events.EntryEvent{
		EntryID:     entry.ID,
		EntryType:   string(entry.EntryType),
		UserType:    string(entry.UserType),
		Name:        entry.Name,
		HouseNumber: entry.HouseNumber,
		CreatedAt:   entry.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish entry created event", "entry_id", entry.ID, "error", err)
	}
}

func (s *checkInService) receipt(entry *domain.Entry) *domain.CheckInReceipt {
	return &domain.CheckInReceipt{
		Entry:       entry,
		PhotoURL:    entry.PhotoURL(),
		DisplayTime: entry.CreatedAt.In(s.loc).Format(receiptTimeLayout),
	}
}
