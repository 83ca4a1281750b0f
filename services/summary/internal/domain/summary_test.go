package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kl(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)
	return loc
}

func TestWindowFor(t *testing.T) {
	loc := kl(t)
	// 2006-01-02 20:00 UTC is 04:00 on the 3rd in Kuala Lumpur.
	now := time.Date(2006, 1, 2, 20, 0, 0, 0, time.UTC)

	daily := WindowFor(PeriodDaily, now, loc)
	assert.Equal(t, time.Date(2006, 1, 3, 0, 0, 0, 0, loc), daily.Start)
	assert.Equal(t, time.Date(2006, 1, 3, 23, 59, 59, 999_000_000, loc), daily.End)

	weekly := WindowFor(PeriodWeekly, now, loc)
	assert.Equal(t, time.Date(2005, 12, 28, 0, 0, 0, 0, loc), weekly.Start)
	assert.Equal(t, daily.End, weekly.End)

	monthly := WindowFor(PeriodMonthly, now, loc)
	assert.Equal(t, time.Date(2006, 1, 1, 0, 0, 0, 0, loc), monthly.Start)
	assert.Equal(t, daily.End, monthly.End)
}

func TestIsLastDayOfMonth(t *testing.T) {
	loc := kl(t)
	assert.True(t, IsLastDayOfMonth(time.Date(2024, 2, 29, 23, 55, 0, 0, loc), loc))
	assert.False(t, IsLastDayOfMonth(time.Date(2025, 2, 28, 23, 55, 0, 0, loc).AddDate(0, 0, -1), loc))
	assert.True(t, IsLastDayOfMonth(time.Date(2025, 2, 28, 23, 55, 0, 0, loc), loc))
	assert.False(t, IsLastDayOfMonth(time.Date(2025, 3, 30, 23, 55, 0, 0, loc), loc))
	assert.True(t, IsLastDayOfMonth(time.Date(2025, 3, 31, 23, 55, 0, 0, loc), loc))
}

func TestTallyPrecedence(t *testing.T) {
	c := Tally([]EntryKind{
		{EntryType: "forced_by_guard", UserType: "resident_paid"},
		{EntryType: "normal", UserType: "resident_unpaid"},
		{EntryType: "normal", UserType: "resident_paid"},
		{EntryType: "normal", UserType: "vendor"},
		{EntryType: "normal", UserType: "other"},
		{EntryType: "normal", UserType: "visitor"},
		{EntryType: "normal", UserType: ""},
	})

	assert.Equal(t, Counts{Visitors: 2, Residents: 2, Vendors: 1, Others: 1, Forced: 1}, c)
	assert.Equal(t, 7, c.Total())
}

func TestCountsNeverNegative(t *testing.T) {
	var c Counts
	c.Add(EntryKind{UserType: "vendor"}, -1)
	assert.Zero(t, c.Vendors)
}

func TestReportMessages(t *testing.T) {
	loc := kl(t)
	now := time.Date(2006, 1, 2, 12, 0, 0, 0, loc)
	counts := Counts{Visitors: 3, Residents: 2, Vendors: 1, Others: 0, Forced: 1}

	daily := Report{Period: PeriodDaily, Window: WindowFor(PeriodDaily, now, loc), Counts: counts}
	assert.Equal(t, "📊 <b>AHE SmartGate Daily Summary</b> (02 Jan 2006)\n"+
		"👥 <b>Visitors:</b> 3\n"+
		"🏠 <b>Residents:</b> 2\n"+
		"📦 <b>Vendors:</b> 1\n"+
		"🧾 <b>Others:</b> 0\n"+
		"🚨 <b>Forced Entries:</b> 1", daily.HTML())

	weekly := Report{Period: PeriodWeekly, Window: WindowFor(PeriodWeekly, now, loc), Counts: counts}
	assert.Contains(t, weekly.HTML(), "📅 <b>AHE SmartGate Weekly Summary</b> (27 Dec – 02 Jan 2006)")

	monthly := Report{Period: PeriodMonthly, Window: WindowFor(PeriodMonthly, now, loc), Counts: counts}
	assert.Contains(t, monthly.HTML(), "📆 <b>AHE SmartGate Monthly Summary</b> (January 2006)")
	assert.Equal(t, "AHE SmartGate Monthly Summary (January 2006)", monthly.Subject())
	assert.Contains(t, monthly.Text(), "Total: 7")
}

func TestParsePeriod(t *testing.T) {
	p, ok := ParsePeriod(" Weekly ")
	assert.True(t, ok)
	assert.Equal(t, PeriodWeekly, p)

	_, ok = ParsePeriod("yearly")
	assert.False(t, ok)
}
