package domain

import (
	"strings"
	"time"
)

type EntryFilter string

const (
	FilterAll      EntryFilter = "all"
	FilterToday    EntryFilter = "today"
	FilterVisitor  EntryFilter = "visitor"
	FilterResident EntryFilter = "resident"
	FilterVendor   EntryFilter = "vendor"
	FilterOther    EntryFilter = "other"
	FilterForced   EntryFilter = "forced"
)

func ParseEntryFilter(s string) (EntryFilter, bool) {
	switch f := EntryFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterToday, FilterVisitor, FilterResident, FilterVendor, FilterOther, FilterForced:
		return f, true
	default:
		return "", false
	}
}

// EntryQuery selects a page of entries, newest first. A zero Limit means
// no limit, which the CSV export uses.
type EntryQuery struct {
	Filter EntryFilter
	Search string
	Limit  int
	Offset int
	// DayStart and DayEnd bound FilterToday in the gate timezone.
	DayStart time.Time
	DayEnd   time.Time
}

type EntryStats struct {
	Total     int `json:"total_entries"`
	Today     int `json:"today_entries"`
	Visitors  int `json:"visitors"`
	Residents int `json:"residents"`
	Vendors   int `json:"vendors"`
	Others    int `json:"others"`
	Forced    int `json:"forced_entries"`
}
