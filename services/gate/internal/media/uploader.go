// Package media stores entry photos in object storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/metrics"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/sethvargo/go-retry"
)

const (
	FolderSelfies       = "selfies"
	FolderForcedEntries = "forced-entries"

	maxHintLength = 40
)

var ErrUploadFailed = errors.New("photo upload failed")

// ObjectStore is implemented by storage.S3Store.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

type Uploader struct {
	store    ObjectStore
	attempts uint64
	delay    time.Duration
	now      func() time.Time
}

func NewUploader(store ObjectStore, cfg config.StorageConfig) *Uploader {
	attempts := cfg.UploadAttempts
	if attempts < 1 {
		attempts = 1
	}
	// retry.NewConstant panics on a non-positive delay.
	delay := cfg.UploadRetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &Uploader{
		store:    store,
		attempts: uint64(attempts),
		delay:    delay,
		now:      time.Now,
	}
}

// Upload stores photo under folder and returns its public URL. Every failure
// is retried with a constant delay; once the attempts are used up the last
// cause is returned wrapped in ErrUploadFailed.
func (u *Uploader) Upload(ctx context.Context, folder string, photo *domain.Photo, ownerHint string) (string, error) {
	contentType, ext, ok := DetectImageType(photo.Data)
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type", ErrUploadFailed)
	}

	key := ObjectKey(folder, u.now(), ownerHint, ext)
	attempt := 0

	backoff := retry.WithMaxRetries(u.attempts-1, retry.NewConstant(u.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := u.store.Put(ctx, key, bytes.NewReader(photo.Data), photo.Size(), contentType)
		metrics.RecordUploadAttempt(err)
		if err != nil {
			logger.WarnContext(ctx, "Photo upload attempt failed", "key", key, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w after %d attempt(s): %w", ErrUploadFailed, attempt, err)
	}

	return u.store.PublicURL(key), nil
}

var hintDisallowed = regexp.MustCompile(`[^a-z0-9-]+`)

// ObjectKey builds "<folder>/<unix millis>_<hint>.<ext>".
func ObjectKey(folder string, at time.Time, hint, ext string) string {
	return fmt.Sprintf("%s/%d_%s.%s", folder, at.UnixMilli(), SanitizeHint(hint), ext)
}

func SanitizeHint(hint string) string {
	s := hintDisallowed.ReplaceAllString(strings.ToLower(strings.TrimSpace(hint)), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxHintLength {
		s = strings.TrimRight(s[:maxHintLength], "-")
	}
	if s == "" {
		return "anonymous"
	}
	return s
}

// DetectImageType sniffs the bytes rather than trusting the client's
// Content-Type. Only JPEG, PNG and WebP are accepted.
func DetectImageType(data []byte) (contentType, ext string, ok bool) {
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg":
		return ct, "jpg", true
	case "image/png":
		return ct, "png", true
	case "image/webp":
		return ct, "webp", true
	default:
		return ct, "", false
	}
}
