package core

import (
	"testing"
)

// ----------------------------------------------------------------------------
// NormalizeColor Tests
// ----------------------------------------------------------------------------

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty defaults to opaque black", input: "", want: "FF000000"},
		{name: "hash prefix stripped and padded", input: "#abc123", want: "FFABC123"},
		{name: "six digits gain alpha", input: "1f4e79", want: "FF1F4E79"},
		{name: "six digits uppercase", input: "FF0000", want: "FFFF0000"},
		{name: "eight digits unchanged", input: "FFABC123", want: "FFABC123"},
		{name: "eight digits uppercased", input: "ffabc123", want: "FFABC123"},
		{name: "hash with eight digits", input: "#80FF0000", want: "80FF0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeColor(tt.input); got != tt.want {
				t.Errorf("NormalizeColor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeColor_Idempotent(t *testing.T) {
	for _, c := range []string{"FF000000", "FFABC123", "80FF0000", "FFFFFFFF"} {
		once := NormalizeColor(c)
		twice := NormalizeColor(once)
		if once != twice {
			t.Errorf("NormalizeColor not idempotent: %q -> %q -> %q", c, once, twice)
		}
		if once != c {
			t.Errorf("NormalizeColor(%q) = %q, want unchanged", c, once)
		}
	}
}

func TestExcelColor(t *testing.T) {
	if got := excelColor("FF1F4E79"); got != "1F4E79" {
		t.Errorf("excelColor(FF1F4E79) = %q, want 1F4E79", got)
	}
	// Anything that is not canonical ARGB passes through untouched.
	if got := excelColor("1F4E79"); got != "1F4E79" {
		t.Errorf("excelColor(1F4E79) = %q, want 1F4E79", got)
	}
}

// ----------------------------------------------------------------------------
// Number Format Tests
// ----------------------------------------------------------------------------

func TestNumberFormatFor(t *testing.T) {
	tests := []struct {
		name     string
		typ      DataType
		explicit []string
		want     string
	}{
		{name: "number default", typ: TypeNumber, want: "0.00"},
		{name: "currency default", typ: TypeCurrency, want: "$#,##0.00"},
		{name: "percentage default", typ: TypePercentage, want: "0.00%"},
		{name: "date default", typ: TypeDate, want: "mm/dd/yyyy"},
		{name: "datetime default", typ: TypeDatetime, want: "mm/dd/yyyy hh:mm:ss"},
		{name: "time default", typ: TypeTime, want: "hh:mm:ss"},
		{name: "text default", typ: TypeText, want: "@"},
		{name: "no type no format", typ: "", want: ""},
		{name: "explicit wins over type", typ: TypeNumber, explicit: []string{"#,##0"}, want: "#,##0"},
		{name: "first non-empty explicit wins", typ: TypeCurrency, explicit: []string{"", "0.000"}, want: "0.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := numberFormatFor(tt.typ, tt.explicit...); got != tt.want {
				t.Errorf("numberFormatFor(%q, %v) = %q, want %q", tt.typ, tt.explicit, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Sub-style Builder Tests
// ----------------------------------------------------------------------------

func TestBuildFont_Defaults(t *testing.T) {
	f := buildFont(&FontSpec{})

	if f.Family != "Calibri" {
		t.Errorf("Family = %q, want Calibri", f.Family)
	}
	if f.Size != 11 {
		t.Errorf("Size = %v, want 11", f.Size)
	}
	if f.Bold || f.Italic || f.Underline != "" {
		t.Errorf("empty spec should not set bold/italic/underline, got %+v", f)
	}
	if f.Color != "000000" {
		t.Errorf("Color = %q, want 000000 (opaque black)", f.Color)
	}
}

func TestBuildFont_Explicit(t *testing.T) {
	f := buildFont(&FontSpec{
		Name: "Arial", Size: 14, Bold: true, Italic: true, Underline: true,
		Color: "#FF0000",
	})

	if f.Family != "Arial" || f.Size != 14 {
		t.Errorf("got %q/%v, want Arial/14", f.Family, f.Size)
	}
	if !f.Bold || !f.Italic {
		t.Error("bold and italic should carry through")
	}
	if f.Underline != "single" {
		t.Errorf("Underline = %q, want single", f.Underline)
	}
	if f.Color != "FF0000" {
		t.Errorf("Color = %q, want FF0000", f.Color)
	}
}

func TestBuildFill_AlwaysSolidPattern(t *testing.T) {
	fill := buildFill(&FillSpec{Color: "#1f4e79"})

	if fill.Type != "pattern" {
		t.Errorf("Type = %q, want pattern", fill.Type)
	}
	if fill.Pattern != 1 {
		t.Errorf("Pattern = %d, want 1 (solid)", fill.Pattern)
	}
	if len(fill.Color) != 1 || fill.Color[0] != "1F4E79" {
		t.Errorf("Color = %v, want [1F4E79]", fill.Color)
	}
}

func TestBuildAlignment_Defaults(t *testing.T) {
	a := buildAlignment(&AlignmentSpec{})

	if a.Horizontal != "left" {
		t.Errorf("Horizontal = %q, want left", a.Horizontal)
	}
	if a.Vertical != "top" {
		t.Errorf("Vertical = %q, want top", a.Vertical)
	}
	if a.WrapText || a.Indent != 0 {
		t.Errorf("empty spec should not set wrap/indent, got %+v", a)
	}
}

func TestBuildBorder(t *testing.T) {
	borders := buildBorder(&BorderSpec{Top: "thick", Bottom: "double"})

	if len(borders) != 4 {
		t.Fatalf("got %d edges, want all 4", len(borders))
	}

	byType := map[string]int{}
	for _, b := range borders {
		byType[b.Type] = b.Style
	}

	// Unspecified edges default to thin (code 1).
	if byType["left"] != 1 || byType["right"] != 1 {
		t.Errorf("left/right = %d/%d, want thin (1)", byType["left"], byType["right"])
	}
	if byType["top"] != 5 {
		t.Errorf("top = %d, want thick (5)", byType["top"])
	}
	if byType["bottom"] != 6 {
		t.Errorf("bottom = %d, want double (6)", byType["bottom"])
	}
}

func TestBuildBorder_UnknownStyleFallsBackToThin(t *testing.T) {
	borders := buildBorder(&BorderSpec{Top: "wavy"})
	for _, b := range borders {
		if b.Type == "top" && b.Style != 1 {
			t.Errorf("unknown style code = %d, want thin (1)", b.Style)
		}
	}
}

// ----------------------------------------------------------------------------
// Overlay Tests
// ----------------------------------------------------------------------------

func TestOverlayStyle_PartialSpecKeepsBase(t *testing.T) {
	base := overlayStyle(nil, &StyleSpec{
		Font: &FontSpec{Bold: true},
		Fill: &FillSpec{Color: "FF00FF00"},
	}, "")

	// Only the fill changes; the font from base must survive.
	merged := overlayStyle(base, &StyleSpec{Fill: &FillSpec{Color: "FFFF0000"}}, "")

	if merged.Font == nil || !merged.Font.Bold {
		t.Error("base font should survive a fill-only overlay")
	}
	if len(merged.Fill.Color) != 1 || merged.Fill.Color[0] != "FF0000" {
		t.Errorf("Fill.Color = %v, want [FF0000]", merged.Fill.Color)
	}
}

func TestOverlayStyle_NumberFormat(t *testing.T) {
	st := overlayStyle(nil, nil, "0.00%")
	if st.CustomNumFmt == nil || *st.CustomNumFmt != "0.00%" {
		t.Errorf("CustomNumFmt = %v, want 0.00%%", st.CustomNumFmt)
	}

	// No format requested leaves the base format alone.
	kept := overlayStyle(st, &StyleSpec{Font: &FontSpec{}}, "")
	if kept.CustomNumFmt == nil || *kept.CustomNumFmt != "0.00%" {
		t.Error("overlay without a format should keep the base number format")
	}
}

func TestDefaultTableHeaderStyle(t *testing.T) {
	spec := defaultTableHeaderStyle()

	if spec.Font == nil || !spec.Font.Bold {
		t.Error("header default font must be bold")
	}
	if NormalizeColor(spec.Font.Color) != "FFFFFFFF" {
		t.Errorf("header font color = %q, want white", spec.Font.Color)
	}
	if spec.Fill == nil || NormalizeColor(spec.Fill.Color) != "FF1F4E79" {
		t.Error("header fill must be the dark-blue default")
	}
	if spec.Alignment == nil || spec.Alignment.Horizontal != "center" {
		t.Error("header default must be centered")
	}
}
