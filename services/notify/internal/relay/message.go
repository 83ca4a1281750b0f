package relay

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diagnosis/smartgate/pkg/telegram"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const messageTimeLayout = "02 Jan 2006, 03:04 PM"

// Escaped-length caps per field. Together with the fixed labels they keep a
// message under Telegram's 4096 and a caption under its 1024 limit, so the
// client never has to cut through an entity.
const (
	maxNameRunes     = 256
	maxHouseRunes    = 64
	maxCategoryRunes = 64
	maxNotesRunes    = 3000
)

// FormatMessage renders the HTML text sent for an entry.
func FormatMessage(e Event, loc *time.Location) string {
	title := "🚪 <b>New Entry Detected</b>"
	classification := "Normal Entry"
	if e.Forced() {
		title = "🚨 <b>Forced Entry Reported</b>"
		classification = "Forced Entry"
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", escapeClipped(e.Name, maxNameRunes))
	fmt.Fprintf(&b, "<b>House:</b> %s\n", escapeClipped(e.HouseNumber, maxHouseRunes))
	fmt.Fprintf(&b, "<b>Category:</b> %s\n", escapeClipped(categoryLabel(e.Category), maxCategoryRunes))
	fmt.Fprintf(&b, "<b>Type:</b> %s\n", classification)
	fmt.Fprintf(&b, "<b>Time:</b> %s", e.Timestamp.In(loc).Format(messageTimeLayout))
	if e.Notes != "" {
		fmt.Fprintf(&b, "\n<b>Notes:</b> %s", escapeClipped(e.Notes, maxNotesRunes))
	}
	return b.String()
}

// PhotoCaption captions the follow-up photo message.
func PhotoCaption(e Event) string {
	return "Entry photo for " + escapeClipped(e.Name, maxNameRunes)
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// categoryLabel turns "resident_unpaid" into "Resident Unpaid".
func categoryLabel(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	if len(words) == 0 {
		return FallbackCategory
	}
	return titleCaser.String(strings.Join(words, " "))
}

// escapeClipped escapes s and, when the escaped text exceeds limit runes,
// cuts it at a whole character and appends an ellipsis.
func escapeClipped(s string, limit int) string {
	escaped := telegram.EscapeHTML(s)
	if utf8.RuneCountInString(escaped) <= limit {
		return escaped
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		piece := telegram.EscapeHTML(string(r))
		w := utf8.RuneCountInString(piece)
		if n+w > limit-1 {
			break
		}
		b.WriteString(piece)
		n += w
	}
	b.WriteString("…")
	return b.String()
}
