package core

// validation.go checks a workbook document before any workbook mutation.
// All offenses are collected into one ValidationError so a client can fix
// the whole document in a single round trip instead of peeling errors one
// at a time.

import (
	"fmt"
	"strings"
)

// knownDataTypes is the accepted set for CellSpec.Type. The empty string
// means "untyped" and is always valid.
var knownDataTypes = map[DataType]bool{
	"":             true,
	TypeNumber:     true,
	TypeCurrency:   true,
	TypePercentage: true,
	TypeDate:       true,
	TypeDatetime:   true,
	TypeTime:       true,
	TypeText:       true,
}

// sheetNameForbidden are the characters the workbook format rejects in
// sheet names.
const sheetNameForbidden = `[]:*?/\`

func (e *ValidationError) add(field, value, message string) {
	e.Issues = append(e.Issues, ValidationIssue{Field: field, Value: value, Message: message})
}

// ValidateWorkbook checks doc field by field. A nil return means the
// document is safe to compose; otherwise the returned error is a
// *ValidationError listing every offense found.
func ValidateWorkbook(doc *WorkbookSpec) error {
	v := &ValidationError{}

	if doc == nil {
		v.add("document", "", "document is required")
		return v
	}
	if len(doc.Sheets) == 0 {
		v.add("sheets", "", "at least one sheet is required")
	}

	seen := make(map[string]bool, len(doc.Sheets))
	for si, sheet := range doc.Sheets {
		field := fmt.Sprintf("sheets[%d]", si)

		switch {
		case sheet.Name == "":
			v.add(field+".name", "", "sheet name is required")
		case seen[sheet.Name]:
			v.add(field+".name", sheet.Name, "duplicate sheet name")
		case len(sheet.Name) > 31:
			v.add(field+".name", sheet.Name, "sheet name longer than 31 characters")
		case strings.ContainsAny(sheet.Name, sheetNameForbidden):
			v.add(field+".name", sheet.Name, "sheet name contains a forbidden character ("+sheetNameForbidden+")")
		}
		seen[sheet.Name] = true

		validateCells(v, field, sheet.Cells)
		validateRanges(v, field, sheet.Ranges)
		validateTables(v, field, sheet.Tables)
		validateFormatting(v, field, sheet.Formatting)
	}

	if len(v.Issues) > 0 {
		return v
	}
	return nil
}

func validateCells(v *ValidationError, parent string, cells []CellSpec) {
	for i, cell := range cells {
		field := fmt.Sprintf("%s.cells[%d]", parent, i)

		if !validCellRef(cell.Address) {
			v.add(field+".address", cell.Address, "malformed cell address")
		}

		hasValue := cell.Value != nil
		hasFormula := cell.Formula != ""
		switch {
		case !hasValue && !hasFormula:
			v.add(field, "", "cell needs a value or a formula")
		case hasValue && hasFormula:
			v.add(field, "", "cell cannot carry both a value and a formula")
		case hasFormula && cell.Result == nil:
			v.add(field+".result", "", "formula requires a precomputed display result")
		}

		if !knownDataTypes[cell.Type] {
			v.add(field+".type", string(cell.Type), "unknown data type")
		}
	}
}

func validateRanges(v *ValidationError, parent string, ranges []RangeSpec) {
	for i, rng := range ranges {
		field := fmt.Sprintf("%s.ranges[%d]", parent, i)

		if !validRangeRef(rng.Range) {
			v.add(field+".range", rng.Range, "malformed range address")
		}
		if len(rng.Values) == 0 {
			v.add(field+".values", "", "range data must not be empty")
		}
	}
}

func validateTables(v *ValidationError, parent string, tables []TableSpec) {
	for i, tbl := range tables {
		field := fmt.Sprintf("%s.tables[%d]", parent, i)

		if tbl.Start != "" && !validCellRef(tbl.Start) {
			v.add(field+".start", tbl.Start, "malformed table anchor address")
		}

		hasRows := len(tbl.Rows) > 0
		hasSource := tbl.Source != nil
		switch {
		case !hasRows && !hasSource:
			v.add(field, "", "table needs inline rows or a query source")
		case hasRows && hasSource:
			v.add(field, "", "table cannot have both inline rows and a query source")
		}

		if hasRows && tbl.Rows[0].Len() == 0 {
			v.add(field+".rows", "", "first row must have at least one column")
		}

		if hasSource {
			if tbl.Source.SQL == "" {
				v.add(field+".source.sql", "", "query source needs a sql statement")
			} else if err := CheckQuerySafety(tbl.Source.SQL); err != nil {
				v.add(field+".source.sql", tbl.Source.SQL, err.Error())
			}
		}
	}
}

func validateFormatting(v *ValidationError, parent string, f *FormattingSpec) {
	if f == nil {
		return
	}
	field := parent + ".formatting"

	if f.FreezeRows < 0 {
		v.add(field+".freeze_rows", fmt.Sprint(f.FreezeRows), "freeze count must be non-negative")
	}
	if f.FreezeColumns < 0 {
		v.add(field+".freeze_columns", fmt.Sprint(f.FreezeColumns), "freeze count must be non-negative")
	}

	ps := f.PageSetup
	if ps == nil {
		return
	}
	switch ps.Orientation {
	case "", "portrait", "landscape":
	default:
		v.add(field+".page_setup.orientation", ps.Orientation, "orientation must be portrait or landscape")
	}
	if ps.PaperSize < 0 {
		v.add(field+".page_setup.paper_size", fmt.Sprint(ps.PaperSize), "paper size must be non-negative")
	}
	if ps.MarginLeft < 0 || ps.MarginRight < 0 || ps.MarginTop < 0 || ps.MarginBottom < 0 {
		v.add(field+".page_setup", "", "margins must be non-negative")
	}
}
