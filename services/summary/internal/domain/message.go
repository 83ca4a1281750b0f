package domain

import (
	"fmt"
	"strings"
)

// Report is one rendered summary.
type Report struct {
	Period Period `json:"period"`
	Window Window `json:"-"`
	Counts Counts `json:"counts"`
}

func (r Report) heading() (icon, title, label string) {
	switch r.Period {
	case PeriodWeekly:
		return "📅", "Weekly", r.Window.Start.Format("02 Jan") + " – " + r.Window.End.Format("02 Jan 2006")
	case PeriodMonthly:
		return "📆", "Monthly", r.Window.End.Format("January 2006")
	default:
		return "📊", "Daily", r.Window.End.Format("02 Jan 2006")
	}
}

// Subject is used for the e-mail copy.
func (r Report) Subject() string {
	_, title, label := r.heading()
	return fmt.Sprintf("AHE SmartGate %s Summary (%s)", title, label)
}

// HTML renders the chat message.
func (r Report) HTML() string {
	icon, title, label := r.heading()
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>AHE SmartGate %s Summary</b> (%s)\n", icon, title, label)
	fmt.Fprintf(&b, "👥 <b>Visitors:</b> %d\n", r.Counts.Visitors)
	fmt.Fprintf(&b, "🏠 <b>Residents:</b> %d\n", r.Counts.Residents)
	fmt.Fprintf(&b, "📦 <b>Vendors:</b> %d\n", r.Counts.Vendors)
	fmt.Fprintf(&b, "🧾 <b>Others:</b> %d\n", r.Counts.Others)
	fmt.Fprintf(&b, "🚨 <b>Forced Entries:</b> %d", r.Counts.Forced)
	return b.String()
}

func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.Subject())
	fmt.Fprintf(&b, "Visitors: %d\n", r.Counts.Visitors)
	fmt.Fprintf(&b, "Residents: %d\n", r.Counts.Residents)
	fmt.Fprintf(&b, "Vendors: %d\n", r.Counts.Vendors)
	fmt.Fprintf(&b, "Others: %d\n", r.Counts.Others)
	fmt.Fprintf(&b, "Forced Entries: %d\n", r.Counts.Forced)
	fmt.Fprintf(&b, "Total: %d\n", r.Counts.Total())
	return b.String()
}
