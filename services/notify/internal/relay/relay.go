package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
)

var ErrNotConfigured = errors.New("telegram configuration missing")

// Sender is the chat API used for delivery.
type Sender interface {
	Configured() bool
	SendMessage(ctx context.Context, html string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

type Result struct {
	Success        bool `json:"success"`
	PhotoDelivered bool `json:"photo_delivered"`
}

type Relay struct {
	sender Sender
	loc    *time.Location
}

func New(sender Sender, loc *time.Location) *Relay {
	return &Relay{sender: sender, loc: loc}
}

func (r *Relay) Configured() bool {
	return r.sender.Configured()
}

// Deliver sends the text message and then, independently, the photo. Only
// a failed text send fails the delivery.
func (r *Relay) Deliver(ctx context.Context, e Event) (Result, error) {
	if !r.sender.Configured() {
		return Result{}, ErrNotConfigured
	}

	if err := r.sender.SendMessage(ctx, FormatMessage(e, r.loc)); err != nil {
		return Result{}, fmt.Errorf("send entry message: %w", err)
	}

	result := Result{Success: true}
	if e.PhotoURL == "" {
		return result, nil
	}

	if err := r.sender.SendPhoto(ctx, e.PhotoURL, PhotoCaption(e)); err != nil {
		logger.WarnContext(ctx, "Entry photo not delivered", "photo_url", e.PhotoURL, "error", err)
		return result, nil
	}
	result.PhotoDelivered = true
	return result, nil
}
