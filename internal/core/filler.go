package core

// filler.go substitutes placeholder text in a loaded template workbook.
// Two passes per cell: {{key}} scalar replacement, and a {{#key}} row
// marker that expands the containing row once per element of an
// array-valued key. Unresolvable placeholders stay as literal text.

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	scalarPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)
	markerPattern = regexp.MustCompile(`\{\{#([A-Za-z0-9_]+)\}\}`)
)

// Fill walks every sheet of the template and applies both substitution
// passes in place. It returns the number of cells rewritten. The caller
// serializes the workbook afterwards.
func Fill(f *excelize.File, data map[string]any, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}

	changed := 0
	for _, sheet := range f.GetSheetList() {
		n, err := fillSheet(f, sheet, data, log)
		changed += n
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// fillSheet processes one sheet top to bottom. Row expansion inserts rows
// below the template row, so the loop works off the row snapshot taken
// before any mutation and carries the net shift to locate each original
// row's current position.
func fillSheet(f *excelize.File, sheet string, data map[string]any, log *slog.Logger) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
	}

	changed := 0
	shift := 0
	for ri, cells := range rows {
		rowNum := ri + 1 + shift

		if key, items, ok := findRowMarker(cells, data); ok {
			n, inserted, err := expandRow(f, sheet, rowNum, cells, key, items, data)
			changed += n
			shift += inserted
			if err != nil {
				return changed, err
			}
			if len(items) > 1 {
				log.Debug("template row expanded", "sheet", sheet, "row", ri+1, "key", key, "rows", len(items))
			}
			continue
		}

		for ci, text := range cells {
			if !scalarPattern.MatchString(text) {
				continue
			}
			out := substitute(text, data, nil)
			if out == text {
				continue
			}
			addr, err := excelize.CoordinatesToCellName(ci+1, rowNum)
			if err != nil {
				return changed, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
			}
			if err := f.SetCellValue(sheet, addr, out); err != nil {
				return changed, &ProcessingError{Sheet: sheet, Address: addr, Op: "fill", Err: err}
			}
			changed++
		}
	}
	return changed, nil
}

// findRowMarker scans the row's cells left to right for the first {{#key}}
// marker whose key resolves to an array. Markers for absent or non-array
// keys stay literal, as does any second marker in the same row.
func findRowMarker(cells []string, data map[string]any) (string, []any, bool) {
	for _, text := range cells {
		m := markerPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if items, ok := data[m[1]].([]any); ok {
			return m[1], items, true
		}
	}
	return "", nil, false
}

// expandRow turns the marker row into one row per array element. The first
// element reuses the original row; every further element gets a fresh row
// inserted directly below, carrying the template row's cell styles. An
// empty array removes the row entirely. Returns cells rewritten and the
// net row-count change.
func expandRow(f *excelize.File, sheet string, rowNum int, cells []string, key string, items []any, data map[string]any) (int, int, error) {
	if len(items) == 0 {
		if err := f.RemoveRow(sheet, rowNum); err != nil {
			return 0, 0, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
		}
		return 0, -1, nil
	}

	marker := "{{#" + key + "}}"

	// Template row snapshot: per-column style IDs for the inserted copies.
	styles := make([]int, len(cells))
	for ci := range cells {
		addr, err := excelize.CoordinatesToCellName(ci+1, rowNum)
		if err != nil {
			return 0, 0, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
		}
		if sid, err := f.GetCellStyle(sheet, addr); err == nil {
			styles[ci] = sid
		}
	}

	changed := 0
	for i, item := range items {
		element, _ := item.(map[string]any)
		target := rowNum + i

		if i > 0 {
			if err := f.InsertRows(sheet, target, 1); err != nil {
				return changed, i - 1, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
			}
		}

		for ci, text := range cells {
			addr, err := excelize.CoordinatesToCellName(ci+1, target)
			if err != nil {
				return changed, i, &ProcessingError{Sheet: sheet, Op: "fill", Err: err}
			}

			if i > 0 && styles[ci] != 0 {
				if err := f.SetCellStyle(sheet, addr, addr, styles[ci]); err != nil {
					return changed, i, &ProcessingError{Sheet: sheet, Address: addr, Op: "fill", Err: err}
				}
			}

			out := strings.ReplaceAll(text, marker, "")
			out = substitute(out, data, element)
			if i == 0 && out == text {
				continue
			}
			if err := f.SetCellValue(sheet, addr, out); err != nil {
				return changed, i, &ProcessingError{Sheet: sheet, Address: addr, Op: "fill", Err: err}
			}
			changed++
		}
	}

	return changed, len(items) - 1, nil
}

// substitute replaces every resolvable {{key}} in text. Element fields
// shadow the top-level mapping; unknown keys keep their literal form.
func substitute(text string, data, element map[string]any) string {
	return scalarPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := m[2 : len(m)-2]
		if element != nil {
			if v, ok := element[key]; ok {
				return displayString(v)
			}
		}
		if v, ok := data[key]; ok {
			return displayString(v)
		}
		return m
	})
}
