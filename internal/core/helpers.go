package core

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/width"
)

// displayWidth measures how many character cells s occupies in a
// spreadsheet column. East Asian wide and fullwidth runes count double;
// everything else counts one, so plain ASCII matches len(s).
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// sanitizeTableName rewrites a display name into an identifier the
// workbook format accepts for named tables: letters, digits and
// underscores, starting with a letter or underscore.
func sanitizeTableName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// ensureXLSX appends the workbook extension when name lacks it.
func ensureXLSX(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return name
	}
	return name + ".xlsx"
}

// defaultOutputName builds a timestamped filename for documents that do
// not name their output.
func defaultOutputName(now time.Time) string {
	return "workbook_" + now.Format("20060102_150405") + ".xlsx"
}
