package core

import (
	"encoding/json"
	"strings"

	"github.com/xuri/excelize/v2"
)

// dataTypeFormats maps each data type to its default number format.
// An explicit format string on the cell or style wins over these.
var dataTypeFormats = map[DataType]string{
	TypeNumber:     "0.00",
	TypeCurrency:   "$#,##0.00",
	TypePercentage: "0.00%",
	TypeDate:       "mm/dd/yyyy",
	TypeDatetime:   "mm/dd/yyyy hh:mm:ss",
	TypeTime:       "hh:mm:ss",
	TypeText:       "@",
}

// borderStyleCodes maps declarative border style names to the workbook
// format's line-style codes.
var borderStyleCodes = map[string]int{
	"thin":   1,
	"medium": 2,
	"dashed": 3,
	"dotted": 4,
	"thick":  5,
	"double": 6,
	"hair":   7,
}

// NormalizeColor canonicalizes a color to 8-digit uppercase ARGB: a
// leading '#' is stripped, hex digits are uppercased, and a 6-digit RGB
// value gains an opaque FF alpha. Absent color means opaque black.
// Normalizing an already-canonical value returns it unchanged.
func NormalizeColor(c string) string {
	if c == "" {
		return "FF000000"
	}
	c = strings.ToUpper(strings.TrimPrefix(c, "#"))
	if len(c) == 6 {
		return "FF" + c
	}
	return c
}

// excelColor converts canonical ARGB to the 6-digit RGB form excelize
// stores; excelize prepends the alpha channel itself.
func excelColor(argb string) string {
	if len(argb) == 8 {
		return argb[2:]
	}
	return argb
}

// numberFormatFor picks the effective number format. Explicit formats are
// tried in order; the data type's default applies when none is set.
func numberFormatFor(typ DataType, explicit ...string) string {
	for _, f := range explicit {
		if f != "" {
			return f
		}
	}
	return dataTypeFormats[typ]
}

// buildFont normalizes a FontSpec: name defaults to Calibri, size to 11.
func buildFont(spec *FontSpec) *excelize.Font {
	name := spec.Name
	if name == "" {
		name = "Calibri"
	}
	size := spec.Size
	if size == 0 {
		size = 11
	}

	f := &excelize.Font{
		Family: name,
		Size:   size,
		Bold:   spec.Bold,
		Italic: spec.Italic,
		Color:  excelColor(NormalizeColor(spec.Color)),
	}
	if spec.Underline {
		f.Underline = "single"
	}
	return f
}

// buildFill renders a FillSpec as a solid pattern fill.
func buildFill(spec *FillSpec) excelize.Fill {
	return excelize.Fill{
		Type:    "pattern",
		Pattern: 1,
		Color:   []string{excelColor(NormalizeColor(spec.Color))},
	}
}

// buildAlignment normalizes an AlignmentSpec: horizontal defaults to
// "left", vertical to "top".
func buildAlignment(spec *AlignmentSpec) *excelize.Alignment {
	h := spec.Horizontal
	if h == "" {
		h = "left"
	}
	v := spec.Vertical
	if v == "" {
		v = "top"
	}
	return &excelize.Alignment{
		Horizontal: h,
		Vertical:   v,
		WrapText:   spec.Wrap,
		Indent:     spec.Indent,
	}
}

// buildBorder sets all four edges together; an unspecified or unknown
// edge style falls back to a thin line.
func buildBorder(spec *BorderSpec) []excelize.Border {
	color := excelColor(NormalizeColor(spec.Color))
	edge := func(side, style string) excelize.Border {
		code, ok := borderStyleCodes[strings.ToLower(style)]
		if !ok {
			code = borderStyleCodes["thin"]
		}
		return excelize.Border{Type: side, Style: code, Color: color}
	}
	return []excelize.Border{
		edge("left", spec.Left),
		edge("right", spec.Right),
		edge("top", spec.Top),
		edge("bottom", spec.Bottom),
	}
}

// overlayStyle merges the present parts of spec (plus an effective number
// format) onto base. Absent parts leave base untouched, so a partial
// style never clobbers what a template or earlier write established.
func overlayStyle(base *excelize.Style, spec *StyleSpec, numFmt string) *excelize.Style {
	st := &excelize.Style{}
	if base != nil {
		*st = *base
	}
	if spec != nil {
		if spec.Font != nil {
			st.Font = buildFont(spec.Font)
		}
		if spec.Fill != nil {
			st.Fill = buildFill(spec.Fill)
		}
		if spec.Alignment != nil {
			st.Alignment = buildAlignment(spec.Alignment)
		}
		if spec.Border != nil {
			st.Border = buildBorder(spec.Border)
		}
	}
	if numFmt != "" {
		st.CustomNumFmt = &numFmt
	}
	return st
}

// defaultTableHeaderStyle is the documented header default: bold white on
// a dark-blue solid fill, centered.
func defaultTableHeaderStyle() *StyleSpec {
	return &StyleSpec{
		Font:      &FontSpec{Bold: true, Color: "FFFFFFFF"},
		Fill:      &FillSpec{Color: "FF1F4E79"},
		Alignment: &AlignmentSpec{Horizontal: "center", Vertical: "center"},
	}
}

// styleCache deduplicates registered styles per workbook. Identical
// rendered styles reuse one style ID instead of growing the stylesheet
// per cell.
type styleCache struct {
	file *excelize.File
	ids  map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{file: f, ids: make(map[string]int)}
}

// id registers st (or returns the cached ID for an identical style).
func (c *styleCache) id(st *excelize.Style) (int, error) {
	key, err := json.Marshal(st)
	if err != nil {
		return 0, err
	}
	if id, ok := c.ids[string(key)]; ok {
		return id, nil
	}
	id, err := c.file.NewStyle(st)
	if err != nil {
		return 0, err
	}
	c.ids[string(key)] = id
	return id, nil
}
