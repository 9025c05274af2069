package core

// writer.go applies one sheet's cell, range and table definitions to the
// underlying workbook. Value writes and style application are deliberately
// decoupled: a style failure is logged and skipped, never allowed to undo a
// value that already landed (StyleApplicationWarning semantics).

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// sheetWriter writes one sheet of a workbook document. It shares the
// workbook's style cache so identical styles across sheets reuse one ID.
type sheetWriter struct {
	file   *excelize.File
	sheet  string
	styles *styleCache
	log    *slog.Logger

	// cells counts value writes for the caller's composition log line.
	cells int
}

// applyStyle registers and applies a style to a cell rectangle. Failures
// degrade to a warning; the written values are left intact.
func (w *sheetWriter) applyStyle(topLeft, bottomRight string, spec *StyleSpec, numFmt string) {
	if spec == nil && numFmt == "" {
		return
	}

	st := overlayStyle(nil, spec, numFmt)
	id, err := w.styles.id(st)
	if err == nil {
		err = w.file.SetCellStyle(w.sheet, topLeft, bottomRight, id)
	}
	if err != nil {
		w.log.Warn("style application skipped",
			"sheet", w.sheet,
			"cell", topLeft,
			"error", err,
		)
	}
}

// writeCell applies a single cell definition: the literal value, or the
// formula plus its precomputed display result, then styling.
func (w *sheetWriter) writeCell(spec CellSpec) error {
	if _, _, err := ParseCellRef(spec.Address); err != nil {
		return &ProcessingError{Sheet: w.sheet, Address: spec.Address, Op: "cell", Err: err}
	}

	if spec.Formula != "" {
		// Formula first, cached result second: excelize keeps both, so the
		// cell displays the supplied result until a spreadsheet application
		// recalculates.
		if err := w.file.SetCellFormula(w.sheet, spec.Address, spec.Formula); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: spec.Address, Op: "cell", Err: err}
		}
		if err := w.file.SetCellValue(w.sheet, spec.Address, cellValue(spec.Result)); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: spec.Address, Op: "cell", Err: err}
		}
	} else {
		if err := w.file.SetCellValue(w.sheet, spec.Address, cellValue(spec.Value)); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: spec.Address, Op: "cell", Err: err}
		}
	}
	w.cells++

	numFmt := ""
	if spec.Type != "" || spec.Format != "" {
		explicit := spec.Format
		if explicit == "" && spec.Style != nil {
			explicit = spec.Style.NumberFormat
		}
		numFmt = numberFormatFor(spec.Type, explicit)
	} else if spec.Style != nil {
		numFmt = spec.Style.NumberFormat
	}
	w.applyStyle(spec.Address, spec.Address, spec.Style, numFmt)

	return nil
}

// writeRange writes a rectangular block of literal values anchored at the
// start of the range string. The data's own dimensions bound the write; the
// range end is never consulted.
func (w *sheetWriter) writeRange(spec RangeSpec) error {
	col, row, err := RangeStart(spec.Range)
	if err != nil {
		return &ProcessingError{Sheet: w.sheet, Address: spec.Range, Op: "range", Err: err}
	}

	for ri, dataRow := range spec.Values {
		for ci, value := range dataRow {
			addr, err := ResolveAddress(col, row+ri, ci)
			if err != nil {
				return &ProcessingError{Sheet: w.sheet, Address: spec.Range, Op: "range", Err: err}
			}
			if err := w.file.SetCellValue(w.sheet, addr, cellValue(value)); err != nil {
				return &ProcessingError{Sheet: w.sheet, Address: addr, Op: "range", Err: err}
			}
			w.cells++
		}
	}

	if spec.Style != nil && len(spec.Values) > 0 {
		widest := 0
		for _, dataRow := range spec.Values {
			if len(dataRow) > widest {
				widest = len(dataRow)
			}
		}
		if widest > 0 {
			last, err := ResolveAddress(col, row+len(spec.Values)-1, widest-1)
			if err != nil {
				return &ProcessingError{Sheet: w.sheet, Address: spec.Range, Op: "range", Err: err}
			}
			w.applyStyle(col+strconv.Itoa(row), last, spec.Style, spec.Style.NumberFormat)
		}
	}

	return nil
}

// writeTable writes a header row plus data rows at the table anchor.
//
// Headers come from the first row's key set in insertion order and decide
// the column layout for every row: later rows with missing keys render
// blank, extra keys are dropped. The alternate sub-style is layered on top
// of the body style on odd body rows (0-indexed). A named table registers
// the full header+body rectangle independently of the styling pass.
func (w *sheetWriter) writeTable(spec TableSpec) error {
	start := spec.Start
	if start == "" {
		start = "A1"
	}
	col, row, err := ParseCellRef(start)
	if err != nil {
		return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
	}
	if len(spec.Rows) == 0 {
		return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table",
			Err: fmt.Errorf("table has no rows")}
	}

	headers := spec.Rows[0].Keys()

	headerStyle := defaultTableHeaderStyle()
	var bodyStyle, altStyle *StyleSpec
	if spec.Style != nil {
		if spec.Style.Header != nil {
			headerStyle = spec.Style.Header
		}
		bodyStyle = spec.Style.Body
		altStyle = spec.Style.Alternate
	}

	// Header row.
	for ci, header := range headers {
		addr, err := ResolveAddress(col, row, ci)
		if err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
		}
		if err := w.file.SetCellValue(w.sheet, addr, header); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: addr, Op: "table", Err: err}
		}
		w.cells++
		w.applyStyle(addr, addr, headerStyle, headerStyle.NumberFormat)
	}

	// Body rows, laid out positionally against the first row's headers.
	for ri, dataRow := range spec.Rows {
		targetRow := row + 1 + ri
		rowStyle := bodyStyle
		if ri%2 == 1 && altStyle != nil {
			rowStyle = layerStyles(bodyStyle, altStyle)
		}

		for ci, header := range headers {
			addr, err := ResolveAddress(col, targetRow, ci)
			if err != nil {
				return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
			}
			value, _ := dataRow.Value(header)
			if err := w.file.SetCellValue(w.sheet, addr, cellValue(value)); err != nil {
				return &ProcessingError{Sheet: w.sheet, Address: addr, Op: "table", Err: err}
			}
			w.cells++
			if rowStyle != nil {
				w.applyStyle(addr, addr, rowStyle, rowStyle.NumberFormat)
			}
		}
	}

	last, err := ResolveAddress(col, row+len(spec.Rows), len(headers)-1)
	if err != nil {
		return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
	}
	tableRange := start + ":" + last

	if spec.Name != "" {
		if err := w.file.AddTable(w.sheet, &excelize.Table{
			Range: tableRange,
			Name:  sanitizeTableName(spec.Name),
		}); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
		}
	} else if spec.AutoFilter {
		// AddTable brings its own filter dropdowns; only a plain block
		// needs an explicit one.
		if err := w.file.AutoFilter(w.sheet, tableRange, nil); err != nil {
			return &ProcessingError{Sheet: w.sheet, Address: start, Op: "table", Err: err}
		}
	}

	return nil
}

// layerStyles merges overlay's present sub-objects over base, producing the
// effective style for an alternate table row. Neither input is modified.
func layerStyles(base, overlay *StyleSpec) *StyleSpec {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}
	merged := *base
	if overlay.Font != nil {
		merged.Font = overlay.Font
	}
	if overlay.Fill != nil {
		merged.Fill = overlay.Fill
	}
	if overlay.Alignment != nil {
		merged.Alignment = overlay.Alignment
	}
	if overlay.Border != nil {
		merged.Border = overlay.Border
	}
	if overlay.NumberFormat != "" {
		merged.NumberFormat = overlay.NumberFormat
	}
	return &merged
}
