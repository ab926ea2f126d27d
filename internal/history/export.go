package history

import (
	"encoding/csv"
	"fmt"
	"io"

	"hashrecipe/internal/locale"
)

// Export renders the log as a header row followed by one row per entry, in
// log order. Headers, counts and status are formatted for loc; each
// timestamp keeps the locale its entry was created in, falling back to loc.
func (l *Ledger) Export(loc locale.Locale) [][]string {
	msgs := locale.MessagesFor(loc)
	entries := l.Entries()

	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, msgs.HistoryHeaders)
	for _, e := range entries {
		created := e.Locale
		if created == "" {
			created = loc
		}
		rows = append(rows, []string{
			e.ID,
			locale.FormatTime(created, e.Timestamp),
			e.Query,
			string(e.Mode),
			string(e.Algorithm),
			locale.FormatCount(loc, e.ResultCount),
			msgs.Success,
		})
	}
	return rows
}

// WriteCSV writes rows as RFC 4180 CSV. Fields containing commas, quotes or
// newlines are quoted.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write history csv: %w", err)
	}
	return nil
}

// ExportFilename is the suggested download name for loc.
func ExportFilename(loc locale.Locale) string {
	return fmt.Sprintf("search_history_%s.csv", loc)
}
