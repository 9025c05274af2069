package core

// types.go declares the request document model shared by the JSON API,
// the YAML report definitions and the CLI.

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// WorkbookSpec is the top-level document describing one workbook.
// Created per request; immutable once parsed; consumed once.
type WorkbookSpec struct {
	// Template is the name of a stored template to seed the workbook from.
	// Empty means start from a blank workbook.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// OutputName is the suggested filename for the composed workbook.
	OutputName string `json:"output_name,omitempty" yaml:"output_name,omitempty"`

	Sheets []SheetSpec `json:"sheets" yaml:"sheets"`
}

// SheetSpec describes one sheet. Name is the unique key within the
// workbook; a name matching an existing sheet (from a loaded template)
// mutates that sheet in place instead of creating a duplicate.
type SheetSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Cells      []CellSpec      `json:"cells,omitempty" yaml:"cells,omitempty"`
	Ranges     []RangeSpec     `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	Tables     []TableSpec     `json:"tables,omitempty" yaml:"tables,omitempty"`
	Formatting *FormattingSpec `json:"formatting,omitempty" yaml:"formatting,omitempty"`
}

// CellSpec writes a single cell: either a literal value, or a formula
// with its precomputed display result (formulas are never evaluated here).
type CellSpec struct {
	Address string     `json:"address" yaml:"address"`
	Value   any        `json:"value,omitempty" yaml:"value,omitempty"`
	Formula string     `json:"formula,omitempty" yaml:"formula,omitempty"`
	Result  any        `json:"result,omitempty" yaml:"result,omitempty"`
	Type    DataType   `json:"type,omitempty" yaml:"type,omitempty"`
	Format  string     `json:"format,omitempty" yaml:"format,omitempty"`
	Style   *StyleSpec `json:"style,omitempty" yaml:"style,omitempty"`
}

// RangeSpec writes a rectangular block of literal values. Only the start
// anchor of the range string is used; the data's own dimensions determine
// the written extent.
type RangeSpec struct {
	Range  string     `json:"range" yaml:"range"`
	Values [][]any    `json:"values" yaml:"values"`
	Style  *StyleSpec `json:"style,omitempty" yaml:"style,omitempty"`
}

// TableSpec writes a header row plus data rows. Headers come from the
// first row's key set in insertion order; later rows are laid out
// positionally against those headers (missing keys render blank, extra
// keys are dropped).
type TableSpec struct {
	// Name, when present, additionally registers the header+body rectangle
	// as a named table construct in the output.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Start is the anchor address of the header row (default "A1").
	Start string `json:"start,omitempty" yaml:"start,omitempty"`

	// Rows holds inline data. Exactly one of Rows or Source must be set.
	Rows []Row `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Source fetches rows from the configured database instead.
	Source *QuerySource `json:"source,omitempty" yaml:"source,omitempty"`

	Style *TableStyle `json:"style,omitempty" yaml:"style,omitempty"`

	// AutoFilter adds a filter dropdown over the header row.
	AutoFilter bool `json:"auto_filter,omitempty" yaml:"auto_filter,omitempty"`
}

// TableStyle carries the three independent table sub-styles. Alternate is
// layered on top of Body on odd body rows (0-indexed), not a replacement.
type TableStyle struct {
	Header    *StyleSpec `json:"header,omitempty" yaml:"header,omitempty"`
	Body      *StyleSpec `json:"body,omitempty" yaml:"body,omitempty"`
	Alternate *StyleSpec `json:"alternate,omitempty" yaml:"alternate,omitempty"`
}

// QuerySource describes a database query whose result set becomes table
// rows. The SQL must pass CheckQuerySafety before execution.
type QuerySource struct {
	SQL    string `json:"sql" yaml:"sql"`
	Params []any  `json:"params,omitempty" yaml:"params,omitempty"`
}

// StyleSpec is a declarative, possibly-partial cell style. Absent
// sub-objects leave the cell's prior style untouched; present ones are
// normalized to documented defaults.
type StyleSpec struct {
	Font      *FontSpec      `json:"font,omitempty" yaml:"font,omitempty"`
	Fill      *FillSpec      `json:"fill,omitempty" yaml:"fill,omitempty"`
	Alignment *AlignmentSpec `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Border    *BorderSpec    `json:"border,omitempty" yaml:"border,omitempty"`

	// NumberFormat is an explicit number-format string. It wins over the
	// data-type default when both are present.
	NumberFormat string `json:"number_format,omitempty" yaml:"number_format,omitempty"`
}

// FontSpec defaults: name "Calibri", size 11, bold/italic/underline false,
// color opaque black.
type FontSpec struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Size      float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Bold      bool    `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty" yaml:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty" yaml:"underline,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// FillSpec is always rendered as a solid pattern fill of Color.
type FillSpec struct {
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// AlignmentSpec defaults: horizontal "left", vertical "top", wrap false,
// indent 0.
type AlignmentSpec struct {
	Horizontal string `json:"horizontal,omitempty" yaml:"horizontal,omitempty"`
	Vertical   string `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	Wrap       bool   `json:"wrap,omitempty" yaml:"wrap,omitempty"`
	Indent     int    `json:"indent,omitempty" yaml:"indent,omitempty"`
}

// BorderSpec sets all four edges together; an unspecified edge defaults to
// a thin line. Color applies to every edge.
type BorderSpec struct {
	Top    string `json:"top,omitempty" yaml:"top,omitempty"`
	Bottom string `json:"bottom,omitempty" yaml:"bottom,omitempty"`
	Left   string `json:"left,omitempty" yaml:"left,omitempty"`
	Right  string `json:"right,omitempty" yaml:"right,omitempty"`
	Color  string `json:"color,omitempty" yaml:"color,omitempty"`
}

// FormattingSpec holds sheet-level formatting applied after all writes.
type FormattingSpec struct {
	// AutoWidth sizes every column from its longest rendered value.
	AutoWidth bool `json:"auto_width,omitempty" yaml:"auto_width,omitempty"`

	// FreezeRows/FreezeColumns pin the first N rows and/or M columns.
	FreezeRows    int `json:"freeze_rows,omitempty" yaml:"freeze_rows,omitempty"`
	FreezeColumns int `json:"freeze_columns,omitempty" yaml:"freeze_columns,omitempty"`

	PageSetup *PageSetupSpec `json:"page_setup,omitempty" yaml:"page_setup,omitempty"`
}

// PageSetupSpec defaults: portrait orientation, paper size 9 (A4),
// left/right margins 0.7, top/bottom margins 0.75. A zero margin means
// "use the default", not a zero-inch margin.
type PageSetupSpec struct {
	Orientation  string  `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	PaperSize    int     `json:"paper_size,omitempty" yaml:"paper_size,omitempty"`
	MarginLeft   float64 `json:"margin_left,omitempty" yaml:"margin_left,omitempty"`
	MarginRight  float64 `json:"margin_right,omitempty" yaml:"margin_right,omitempty"`
	MarginTop    float64 `json:"margin_top,omitempty" yaml:"margin_top,omitempty"`
	MarginBottom float64 `json:"margin_bottom,omitempty" yaml:"margin_bottom,omitempty"`
}

// DataType tags a cell with a semantic type that maps to a default
// number format.
type DataType string

const (
	TypeNumber     DataType = "number"
	TypeCurrency   DataType = "currency"
	TypePercentage DataType = "percentage"
	TypeDate       DataType = "date"
	TypeDatetime   DataType = "datetime"
	TypeTime       DataType = "time"
	TypeText       DataType = "text"
)

// Result is a composed workbook: the serialized buffer plus the counts
// the caller logs.
type Result struct {
	Data     []byte
	Filename string
	Sheets   int
	Cells    int
}

// Row is one table row: column names mapped to values with the original
// key order preserved. Order matters because the first row of a table
// decides both the header row and the column layout for every row after.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a Row from parallel key/value slices, as returned by a
// database query. Duplicate keys keep the last value but are listed once.
func NewRow(keys []string, values []any) Row {
	r := Row{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, k := range keys {
		if _, seen := r.values[k]; !seen {
			r.keys = append(r.keys, k)
		}
		if i < len(values) {
			r.values[k] = values[i]
		} else {
			r.values[k] = nil
		}
	}
	return r
}

// Keys returns the column names in insertion order. The returned slice is
// shared; callers must not modify it.
func (r Row) Keys() []string { return r.keys }

// Value returns the value for key and whether the key exists.
func (r Row) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.keys) }

// UnmarshalJSON decodes a JSON object preserving key order, which the
// standard map decoding would destroy. Numbers decode as json.Number so
// integers survive without a float round-trip.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("table row must be a JSON object, got %v", tok)
	}

	r.keys = nil
	r.values = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("table row key must be a string, got %v", keyTok)
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("table row value for %q: %w", key, err)
		}

		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = val
	}

	// Closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the row as a JSON object in insertion order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping preserving key order. Report
// definitions carry inline table rows in YAML.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("table row must be a mapping, got line %d", node.Line)
	}

	r.keys = nil
	r.values = make(map[string]any)

	// Content alternates key, value, key, value.
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var val any
		if err := node.Content[i+1].Decode(&val); err != nil {
			return fmt.Errorf("table row value for %q: %w", key, err)
		}
		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = val
	}
	return nil
}
