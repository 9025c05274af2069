package core

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func composeDoc(t *testing.T, fresh bool, doc *WorkbookSpec) (*excelize.File, *Result, error) {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	res, err := NewComposer(f, fresh, nil).Compose(doc)
	return f, res, err
}

// ----------------------------------------------------------------------------
// Sheet Creation Tests
// ----------------------------------------------------------------------------

func TestComposeFreshWorkbookRenamesDefaultSheet(t *testing.T) {
	f, res, err := composeDoc(t, true, &WorkbookSpec{
		Sheets: []SheetSpec{{
			Name:  "Summary",
			Cells: []CellSpec{{Address: "A1", Value: "hello"}},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Summary" {
		t.Errorf("sheets = %v, want only Summary", sheets)
	}
	if res.Sheets != 1 || res.Cells != 1 {
		t.Errorf("Result counts = %d sheets, %d cells, want 1/1", res.Sheets, res.Cells)
	}
	if len(res.Data) == 0 {
		t.Error("Result.Data is empty, want serialized workbook")
	}
}

func TestComposeTemplateWorkbookAppendsNewSheet(t *testing.T) {
	f, _, err := composeDoc(t, false, &WorkbookSpec{
		Sheets: []SheetSpec{{
			Name:  "Extra",
			Cells: []CellSpec{{Address: "A1", Value: 1}},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Sheet1" || sheets[1] != "Extra" {
		t.Errorf("sheets = %v, want template sheet kept plus Extra", sheets)
	}
}

func TestComposeMatchingNameMutatesExistingSheet(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	if err := f.SetCellValue("Sheet1", "A1", "from template"); err != nil {
		t.Fatal(err)
	}

	_, err := NewComposer(f, false, nil).Compose(&WorkbookSpec{
		Sheets: []SheetSpec{{
			Name:  "Sheet1",
			Cells: []CellSpec{{Address: "B1", Value: "added"}},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	if sheets := f.GetSheetList(); len(sheets) != 1 {
		t.Errorf("sheets = %v, want the existing sheet mutated in place", sheets)
	}
	got, _ := f.GetCellValue("Sheet1", "A1")
	if got != "from template" {
		t.Errorf("A1 = %q, want template content preserved", got)
	}
	got, _ = f.GetCellValue("Sheet1", "B1")
	if got != "added" {
		t.Errorf("B1 = %q, want added", got)
	}
}

// ----------------------------------------------------------------------------
// Error Isolation Tests
// ----------------------------------------------------------------------------

func TestComposeSheetErrorDoesNotStopSiblings(t *testing.T) {
	f, res, err := composeDoc(t, true, &WorkbookSpec{
		Sheets: []SheetSpec{
			{Name: "Broken", Cells: []CellSpec{{Address: "1A", Value: "x"}}},
			{Name: "Fine", Cells: []CellSpec{{Address: "A1", Value: "ok"}}},
		},
	})

	if err == nil {
		t.Fatal("Compose = nil error, want the first sheet's failure")
	}
	if res != nil {
		t.Errorf("Result = %+v, want nil on error", res)
	}
	procErr, ok := err.(*ProcessingError)
	if !ok {
		t.Fatalf("error type = %T, want *ProcessingError", err)
	}
	if procErr.Sheet != "Broken" {
		t.Errorf("error sheet = %q, want Broken", procErr.Sheet)
	}

	// The sibling sheet was still composed.
	got, _ := f.GetCellValue("Fine", "A1")
	if got != "ok" {
		t.Errorf("Fine!A1 = %q, want ok", got)
	}
}

// ----------------------------------------------------------------------------
// Output Name Tests
// ----------------------------------------------------------------------------

func TestComposeOutputName(t *testing.T) {
	doc := func(name string) *WorkbookSpec {
		return &WorkbookSpec{
			OutputName: name,
			Sheets: []SheetSpec{{
				Name:  "S",
				Cells: []CellSpec{{Address: "A1", Value: 1}},
			}},
		}
	}

	_, res, err := composeDoc(t, true, doc("report"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Filename != "report.xlsx" {
		t.Errorf("Filename = %q, want report.xlsx", res.Filename)
	}

	_, res, err = composeDoc(t, true, doc(""))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Filename, "workbook_") || !strings.HasSuffix(res.Filename, ".xlsx") {
		t.Errorf("Filename = %q, want timestamped default", res.Filename)
	}
}

// ----------------------------------------------------------------------------
// Formatting Tests
// ----------------------------------------------------------------------------

func TestComposeAutoWidth(t *testing.T) {
	f, _, err := composeDoc(t, true, &WorkbookSpec{
		Sheets: []SheetSpec{{
			Name: "Data",
			Cells: []CellSpec{
				{Address: "B1", Value: "12345678"},
				{Address: "C1", Value: strings.Repeat("x", 60)},
			},
			Formatting: &FormattingSpec{AutoWidth: true},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	tests := []struct {
		col  string
		want float64
	}{
		{"A", 10}, // empty column gets the default
		{"B", 10}, // 8 characters plus padding
		{"C", 50}, // capped
	}
	for _, tt := range tests {
		got, err := f.GetColWidth("Data", tt.col)
		if err != nil {
			t.Fatalf("GetColWidth(%s) = %v", tt.col, err)
		}
		if got != tt.want {
			t.Errorf("column %s width = %v, want %v", tt.col, got, tt.want)
		}
	}
}

func TestComposeFreezePanes(t *testing.T) {
	f, _, err := composeDoc(t, true, &WorkbookSpec{
		Sheets: []SheetSpec{{
			Name:       "Data",
			Cells:      []CellSpec{{Address: "A1", Value: "h"}},
			Formatting: &FormattingSpec{FreezeRows: 1, FreezeColumns: 2},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	panes, err := f.GetPanes("Data")
	if err != nil {
		t.Fatalf("GetPanes = %v", err)
	}
	if !panes.Freeze || panes.XSplit != 2 || panes.YSplit != 1 {
		t.Errorf("panes = %+v, want frozen with XSplit 2, YSplit 1", panes)
	}
	if panes.TopLeftCell != "C2" {
		t.Errorf("TopLeftCell = %q, want C2", panes.TopLeftCell)
	}
}

func TestComposePageSetupDefaults(t *testing.T) {
	f, _, err := composeDoc(t, true, &WorkbookSpec{
		Sheets: []SheetSpec{{
			Name:       "Data",
			Cells:      []CellSpec{{Address: "A1", Value: "h"}},
			Formatting: &FormattingSpec{PageSetup: &PageSetupSpec{}},
		}},
	})
	if err != nil {
		t.Fatalf("Compose = %v", err)
	}

	layout, err := f.GetPageLayout("Data")
	if err != nil {
		t.Fatalf("GetPageLayout = %v", err)
	}
	if layout.Orientation == nil || *layout.Orientation != "portrait" {
		t.Errorf("orientation = %v, want portrait", layout.Orientation)
	}
	if layout.Size == nil || *layout.Size != 9 {
		t.Errorf("paper size = %v, want 9", layout.Size)
	}

	margins, err := f.GetPageMargins("Data")
	if err != nil {
		t.Fatalf("GetPageMargins = %v", err)
	}
	if margins.Left == nil || *margins.Left != 0.7 {
		t.Errorf("left margin = %v, want 0.7", margins.Left)
	}
	if margins.Top == nil || *margins.Top != 0.75 {
		t.Errorf("top margin = %v, want 0.75", margins.Top)
	}
}
