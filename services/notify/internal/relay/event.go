// Package relay turns loosely shaped entry payloads into one chat
// notification.
package relay

import "time"

const (
	FallbackName      = "Unknown Visitor"
	FallbackHouse     = "-"
	FallbackCategory  = "-"
	FallbackEntryType = "normal"

	entryTypeForced = "forced_by_guard"
)

// Event is the canonical entry notification every payload shape maps onto.
type Event struct {
	Name        string
	HouseNumber string
	Category    string
	EntryType   string
	Timestamp   time.Time
	PhotoURL    string
	Notes       string
}

// Forced reports whether the entry bypassed the check-in form.
func (e Event) Forced() bool {
	return e.EntryType == entryTypeForced
}

// merge fills blank fields of e from other.
func (e *Event) merge(other Event) {
	if e.Name == "" {
		e.Name = other.Name
	}
	if e.HouseNumber == "" {
		e.HouseNumber = other.HouseNumber
	}
	if e.Category == "" {
		e.Category = other.Category
	}
	if e.EntryType == "" {
		e.EntryType = other.EntryType
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = other.Timestamp
	}
	if e.PhotoURL == "" {
		e.PhotoURL = other.PhotoURL
	}
	if e.Notes == "" {
		e.Notes = other.Notes
	}
}

func (e *Event) applyFallbacks(now time.Time) {
	if e.Name == "" {
		e.Name = FallbackName
	}
	if e.HouseNumber == "" {
		e.HouseNumber = FallbackHouse
	}
	if e.Category == "" {
		e.Category = FallbackCategory
	}
	if e.EntryType == "" {
		e.EntryType = FallbackEntryType
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}
