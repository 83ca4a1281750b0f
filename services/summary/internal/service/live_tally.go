package service

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/smartgate/pkg/events"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
)

// LiveSnapshot is today's running tally.
type LiveSnapshot struct {
	Date   string        `json:"date"`
	Counts domain.Counts `json:"counts"`
	Total  int           `json:"total"`
}

// LiveTally keeps today's counts current from entry events. It rolls over
// to an empty tally at midnight in the gate timezone.
type LiveTally struct {
	mu     sync.Mutex
	day    string
	counts domain.Counts
	loc    *time.Location
	now    func() time.Time
}

func NewLiveTally(loc *time.Location) *LiveTally {
	return &LiveTally{loc: loc, now: time.Now}
}

// Seed replaces today's counts, normally with a fresh database count.
func (t *LiveTally) Seed(counts domain.Counts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.day = t.today()
	t.counts = counts
}

// Apply counts a created entry (delta 1) or uncounts a deleted one (-1).
// Entries from other days are ignored.
func (t *LiveTally) Apply(ev events.EntryEvent, delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	if !ev.CreatedAt.IsZero() && ev.CreatedAt.In(t.loc).Format(time.DateOnly) != t.day {
		return
	}
	t.counts.Add(domain.EntryKind{EntryType: ev.EntryType, UserType: ev.UserType}, delta)
}

func (t *LiveTally) Snapshot() LiveSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return LiveSnapshot{Date: t.day, Counts: t.counts, Total: t.counts.Total()}
}

// Subscribe feeds the tally from entry.created and entry.deleted.
func (t *LiveTally) Subscribe(bus events.Subscriber) error {
	if err := bus.Subscribe(events.EntryCreated, t.handle(1)); err != nil {
		return err
	}
	return bus.Subscribe(events.EntryDeleted, t.handle(-1))
}

func (t *LiveTally) handle(delta int) func(*events.Message) {
	return func(msg *events.Message) {
		ev, err := events.DecodeEntryEvent(msg)
		if err != nil {
			logger.WarnContext(context.Background(), "Dropping malformed entry event", "subject", msg.Subject, "error", err)
			return
		}
		t.Apply(ev, delta)
	}
}

func (t *LiveTally) rollover() {
	if today := t.today(); today != t.day {
		t.day = today
		t.counts = domain.Counts{}
	}
}

func (t *LiveTally) today() string {
	return t.now().In(t.loc).Format(time.DateOnly)
}
