package core

// composer.go walks a workbook document through the linear composition
// pipeline: fetch-or-create each sheet by name, apply cells, ranges and
// tables, apply sheet-level formatting, then serialize. A processing error
// aborts the sheet it occurred on; sibling sheets are still composed, and
// the first error is surfaced to the caller.

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

// Column width bounds for auto width: an empty column gets the default, a
// populated one gets its longest rendered value plus padding, capped.
const (
	autoWidthDefault = 10
	autoWidthPad     = 2
	autoWidthCap     = 50
)

// Page setup defaults: portrait A4 (paper size code 9) with Office's
// standard margins.
const (
	defaultPaperSize    = 9
	defaultMarginSide   = 0.7
	defaultMarginTopBot = 0.75
)

// Composer materializes one workbook document into the workbook file it
// was constructed around. fresh marks a workbook created blank (not loaded
// from a template): its default sheet is renamed to the document's first
// sheet instead of being left behind empty.
type Composer struct {
	file   *excelize.File
	styles *styleCache
	log    *slog.Logger
	fresh  bool
}

// NewComposer wraps a workbook file for composition. Pass fresh=true for a
// workbook created with excelize.NewFile, false for a loaded template.
func NewComposer(f *excelize.File, fresh bool, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{
		file:   f,
		styles: newStyleCache(f),
		log:    log,
		fresh:  fresh,
	}
}

// Compose runs the pipeline over every sheet of doc and serializes the
// result. The document must already have passed ValidateWorkbook and have
// its query sources resolved into inline rows.
func (c *Composer) Compose(doc *WorkbookSpec) (*Result, error) {
	var firstErr error
	totalCells := 0

	for i, sheet := range doc.Sheets {
		w, err := c.ensureSheet(sheet.Name, i == 0)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := c.composeSheet(w, sheet); err != nil {
			c.log.Warn("sheet composition aborted", "sheet", sheet.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		totalCells += w.cells
	}

	if firstErr != nil {
		return nil, firstErr
	}

	buf, err := c.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	name := doc.OutputName
	if name == "" {
		name = defaultOutputName(time.Now())
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: ensureXLSX(name),
		Sheets:   len(doc.Sheets),
		Cells:    totalCells,
	}, nil
}

// ensureSheet returns a writer for the named sheet, creating it when the
// workbook has no sheet by that name. A matching name mutates the existing
// sheet in place, which is how template sheets are addressed.
func (c *Composer) ensureSheet(name string, first bool) (*sheetWriter, error) {
	idx, err := c.file.GetSheetIndex(name)
	if err != nil {
		return nil, &ProcessingError{Sheet: name, Op: "sheet", Err: err}
	}

	if idx < 0 {
		if c.fresh && first {
			// A blank workbook starts with one default sheet; the first
			// spec sheet takes it over instead of leaving it behind.
			current := c.file.GetSheetName(0)
			if err := c.file.SetSheetName(current, name); err != nil {
				return nil, &ProcessingError{Sheet: name, Op: "sheet", Err: err}
			}
		} else {
			if _, err := c.file.NewSheet(name); err != nil {
				return nil, &ProcessingError{Sheet: name, Op: "sheet", Err: err}
			}
		}
	}

	return &sheetWriter{
		file:   c.file,
		sheet:  name,
		styles: c.styles,
		log:    c.log,
	}, nil
}

// composeSheet applies one sheet's writes in document order: cells, then
// ranges, then tables, then sheet formatting. The first error stops the
// sheet.
func (c *Composer) composeSheet(w *sheetWriter, sheet SheetSpec) error {
	for _, cell := range sheet.Cells {
		if err := w.writeCell(cell); err != nil {
			return err
		}
	}
	for _, rng := range sheet.Ranges {
		if err := w.writeRange(rng); err != nil {
			return err
		}
	}
	for _, tbl := range sheet.Tables {
		if err := w.writeTable(tbl); err != nil {
			return err
		}
	}
	if sheet.Formatting != nil {
		if err := c.applyFormatting(sheet.Name, sheet.Formatting); err != nil {
			return err
		}
	}
	return nil
}

// applyFormatting applies sheet-level formatting after all writes, so auto
// width sees the final cell contents.
func (c *Composer) applyFormatting(sheet string, f *FormattingSpec) error {
	if f.AutoWidth {
		if err := c.autoWidth(sheet); err != nil {
			return &ProcessingError{Sheet: sheet, Op: "formatting", Err: err}
		}
	}

	if f.FreezeRows > 0 || f.FreezeColumns > 0 {
		topLeft, err := excelize.CoordinatesToCellName(f.FreezeColumns+1, f.FreezeRows+1)
		if err != nil {
			return &ProcessingError{Sheet: sheet, Op: "formatting", Err: err}
		}
		if err := c.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      f.FreezeColumns,
			YSplit:      f.FreezeRows,
			TopLeftCell: topLeft,
			ActivePane:  "bottomRight",
		}); err != nil {
			return &ProcessingError{Sheet: sheet, Op: "formatting", Err: err}
		}
	}

	if f.PageSetup != nil {
		if err := c.pageSetup(sheet, f.PageSetup); err != nil {
			return &ProcessingError{Sheet: sheet, Op: "formatting", Err: err}
		}
	}

	return nil
}

// autoWidth sizes every populated column from its longest rendered value.
func (c *Composer) autoWidth(sheet string) error {
	cols, err := c.file.GetCols(sheet)
	if err != nil {
		return err
	}

	for i, col := range cols {
		longest := 0
		for _, cell := range col {
			if w := displayWidth(cell); w > longest {
				longest = w
			}
		}

		width := autoWidthDefault
		if longest > 0 {
			width = longest + autoWidthPad
		}
		if width > autoWidthCap {
			width = autoWidthCap
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := c.file.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

// pageSetup applies orientation, paper size and margins with the
// documented defaults for anything unset.
func (c *Composer) pageSetup(sheet string, ps *PageSetupSpec) error {
	orientation := ps.Orientation
	if orientation == "" {
		orientation = "portrait"
	}
	size := ps.PaperSize
	if size == 0 {
		size = defaultPaperSize
	}
	if err := c.file.SetPageLayout(sheet, &excelize.PageLayoutOptions{
		Orientation: &orientation,
		Size:        &size,
	}); err != nil {
		return err
	}

	margin := func(v, def float64) *float64 {
		if v == 0 {
			v = def
		}
		return &v
	}
	return c.file.SetPageMargins(sheet, &excelize.PageLayoutMarginsOptions{
		Left:   margin(ps.MarginLeft, defaultMarginSide),
		Right:  margin(ps.MarginRight, defaultMarginSide),
		Top:    margin(ps.MarginTop, defaultMarginTopBot),
		Bottom: margin(ps.MarginBottom, defaultMarginTopBot),
	})
}
