package domain

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, true
	default:
		return "", false
	}
}

// Window is an inclusive time range in the gate timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns the range a summary covers: today for daily, the last
// seven days including today for weekly, and month to date for monthly.
func WindowFor(p Period, now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := today.AddDate(0, 0, 1).Add(-time.Millisecond)

	switch p {
	case PeriodWeekly:
		return Window{Start: today.AddDate(0, 0, -6), End: end}
	case PeriodMonthly:
		return Window{Start: time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc), End: end}
	default:
		return Window{Start: today, End: end}
	}
}

// IsLastDayOfMonth is the guard for the monthly job, which cron can only
// schedule on days 28-31.
func IsLastDayOfMonth(now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	return local.AddDate(0, 0, 1).Month() != local.Month()
}

// EntryKind is the part of an entry the tally looks at.
type EntryKind struct {
	EntryType string
	UserType  string
}

type Counts struct {
	Visitors  int `json:"visitors"`
	Residents int `json:"residents"`
	Vendors   int `json:"vendors"`
	Others    int `json:"others"`
	Forced    int `json:"forced"`
}

func (c Counts) Total() int {
	return c.Visitors + c.Residents + c.Vendors + c.Others + c.Forced
}

// Add counts one entry in exactly one bucket. Forced entries win over the
// visitor category; anything unrecognised is a visitor.
func (c *Counts) Add(k EntryKind, delta int) {
	switch {
	case k.EntryType == "forced_by_guard":
		c.Forced = clamp(c.Forced + delta)
	case strings.Contains(k.UserType, "resident"):
		c.Residents = clamp(c.Residents + delta)
	case k.UserType == "vendor":
		c.Vendors = clamp(c.Vendors + delta)
	case k.UserType == "other":
		c.Others = clamp(c.Others + delta)
	default:
		c.Visitors = clamp(c.Visitors + delta)
	}
}

func Tally(kinds []EntryKind) Counts {
	var c Counts
	for _, k := range kinds {
		c.Add(k, 1)
	}
	return c
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
