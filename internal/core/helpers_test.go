package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// displayWidth Tests
// ----------------------------------------------------------------------------

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "ascii matches len", input: "Widget", want: 6},
		{name: "spaces count", input: "a b", want: 3},
		{name: "wide cjk counts double", input: "漢字", want: 4},
		{name: "mixed ascii and cjk", input: "A漢B", want: 4},
		{name: "fullwidth latin counts double", input: "Ａ", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayWidth(tt.input); got != tt.want {
				t.Errorf("displayWidth(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// sanitizeTableName Tests
// ----------------------------------------------------------------------------

func TestSanitizeTableName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sales", "Sales"},
		{"Q1 Sales", "Q1_Sales"},
		{"2024Totals", "_2024Totals"},
		{"a-b.c", "a_b_c"},
		{"_private", "_private"},
		{"", "_"},
	}

	for _, tt := range tests {
		if got := sanitizeTableName(tt.input); got != tt.want {
			t.Errorf("sanitizeTableName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Filename Helper Tests
// ----------------------------------------------------------------------------

func TestEnsureXLSX(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report", "report.xlsx"},
		{"report.xlsx", "report.xlsx"},
		{"report.XLSX", "report.XLSX"},
		{"report.xls", "report.xls.xlsx"},
	}

	for _, tt := range tests {
		if got := ensureXLSX(tt.input); got != tt.want {
			t.Errorf("ensureXLSX(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultOutputName(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)
	got := defaultOutputName(at)
	want := "workbook_20240301_093015.xlsx"
	if got != want {
		t.Errorf("defaultOutputName = %q, want %q", got, want)
	}
}
