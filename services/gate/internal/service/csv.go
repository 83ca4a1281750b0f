package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/smartgate/services/gate/internal/domain"
)

const csvTimeLayout = "02/01/2006, 3:04:05 PM"

var fieldBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

var csvHeader = []string{"ID", "Name", "Type", "House Number", "Entry Type", "Timestamp", "Notes"}

// EntriesCSV renders one header line plus one line per entry. Every field is
// quoted, which encoding/csv cannot be told to do, so quoting is done here.
// Line breaks inside a field are flattened to spaces to keep one entry per
// line for spreadsheet imports.
func EntriesCSV(entries []domain.Entry, loc *time.Location) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, csvLine(csvHeader))
	for _, e := range entries {
		lines = append(lines, csvLine([]string{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			string(e.UserType),
			e.HouseNumber,
			string(e.EntryType),
			e.CreatedAt.In(loc).Format(csvTimeLayout),
			e.Notes,
		}))
	}
	return strings.Join(lines, "\n")
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		f = fieldBreaks.Replace(f)
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
