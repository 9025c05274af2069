package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const salesReportYAML = `name: sales
description: Regional sales summary
params:
  - name: region
    required: true
  - name: limit
    default: 10
workbook:
  output_name: "sales_{{region}}"
  sheets:
    - name: Sales
      tables:
        - start: A1
          source:
            sql: select product, total from sales where region = $1 limit $2
            params: ["{{region}}", "{{limit}}"]
`

func writeReportFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ----------------------------------------------------------------------------
// LoadReports Tests
// ----------------------------------------------------------------------------

func TestLoadReports(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "sales.yaml", salesReportYAML)
	writeReportFile(t, dir, "notes.txt", "ignored")

	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatalf("LoadReports = %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", reg.Len())
	}

	def, err := reg.Get("sales")
	if err != nil {
		t.Fatalf("Get(sales) = %v", err)
	}
	if def.Description != "Regional sales summary" {
		t.Errorf("Description = %q", def.Description)
	}
	if len(def.Params) != 2 || def.Params[0].Name != "region" || !def.Params[0].Required {
		t.Errorf("Params = %+v, want region required first", def.Params)
	}
}

func TestLoadReportsMissingDirectory(t *testing.T) {
	reg, err := LoadReports(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatalf("LoadReports(absent dir) = %v, want empty registry", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d, want 0", reg.Len())
	}
}

func TestLoadReportsNameDefaultsToFilename(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "monthly.yml", "workbook:\n  sheets:\n    - name: S\n")

	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("monthly"); err != nil {
		t.Errorf("Get(monthly) = %v, want filename-stem name", err)
	}
}

func TestLoadReportsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "a.yaml", "name: dup\nworkbook:\n  sheets: []\n")
	writeReportFile(t, dir, "b.yaml", "name: dup\nworkbook:\n  sheets: []\n")

	if _, err := LoadReports(dir, nil); err == nil {
		t.Error("LoadReports with duplicate names = nil, want error")
	}
}

func TestLoadReportsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "bad.yaml", "name: [unclosed")

	if _, err := LoadReports(dir, nil); err == nil {
		t.Error("LoadReports with malformed YAML = nil, want error")
	}
}

func TestReportRegistryGetMissing(t *testing.T) {
	reg, err := LoadReports(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("nope"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get(nope) = %v, want ErrReportNotFound", err)
	}
}

func TestReportRegistryListOmitsWorkbooks(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "sales.yaml", salesReportYAML)
	writeReportFile(t, dir, "audit.yaml", "name: audit\nworkbook:\n  sheets:\n    - name: A\n")

	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	defs := reg.List()
	if len(defs) != 2 || defs[0].Name != "audit" || defs[1].Name != "sales" {
		t.Fatalf("List = %+v, want audit then sales", defs)
	}
	for _, def := range defs {
		if len(def.Workbook.Sheets) != 0 {
			t.Errorf("List entry %s carries a workbook body", def.Name)
		}
	}
}

// ----------------------------------------------------------------------------
// Instantiate Tests
// ----------------------------------------------------------------------------

func TestInstantiateResolvesParams(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "sales.yaml", salesReportYAML)
	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, err := reg.Get("sales")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := def.Instantiate(map[string]any{"region": "west"})
	if err != nil {
		t.Fatalf("Instantiate = %v", err)
	}

	if doc.OutputName != "sales_west" {
		t.Errorf("OutputName = %q, want sales_west", doc.OutputName)
	}

	src := doc.Sheets[0].Tables[0].Source
	if src.Params[0] != "west" {
		t.Errorf("Params[0] = %v, want west", src.Params[0])
	}
	// The default keeps its native type so the driver sees an int.
	if src.Params[1] != 10 {
		t.Errorf("Params[1] = %v (%T), want int 10", src.Params[1], src.Params[1])
	}
}

func TestInstantiateMissingRequiredParam(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "sales.yaml", salesReportYAML)
	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, err := reg.Get("sales")
	if err != nil {
		t.Fatal(err)
	}

	_, err = def.Instantiate(nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Instantiate without region = %v, want *ValidationError", err)
	}
	if len(valErr.Issues) != 1 || valErr.Issues[0].Field != "params.region" {
		t.Errorf("Issues = %+v, want params.region flagged", valErr.Issues)
	}
}

func TestInstantiateDoesNotMutateDefinition(t *testing.T) {
	dir := t.TempDir()
	writeReportFile(t, dir, "sales.yaml", salesReportYAML)
	reg, err := LoadReports(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, err := reg.Get("sales")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := def.Instantiate(map[string]any{"region": "west"}); err != nil {
		t.Fatal(err)
	}

	// A second render with a different region must see the original
	// placeholders, not the previous resolution.
	doc, err := def.Instantiate(map[string]any{"region": "east"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Sheets[0].Tables[0].Source.Params[0] != "east" {
		t.Errorf("second render Params[0] = %v, want east",
			doc.Sheets[0].Tables[0].Source.Params[0])
	}
	if def.Workbook.Sheets[0].Tables[0].Source.Params[0] != "{{region}}" {
		t.Errorf("definition mutated: Params[0] = %v, want literal placeholder",
			def.Workbook.Sheets[0].Tables[0].Source.Params[0])
	}
}
