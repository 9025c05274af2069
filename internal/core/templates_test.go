package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// xlsxBytes serializes a minimal real workbook so Save's content sniffing
// sees a genuine xlsx archive.
func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", "seed"); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T, maxSize int64) *TemplateStore {
	t.Helper()
	store, err := NewTemplateStore(t.TempDir(), maxSize, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// ----------------------------------------------------------------------------
// Save / Open / List / Delete Tests
// ----------------------------------------------------------------------------

func TestTemplateStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, 1<<20)
	data := xlsxBytes(t)

	info, err := store.Save("invoice", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save = %v", err)
	}
	if info.Name != "invoice.xlsx" {
		t.Errorf("Name = %q, want invoice.xlsx", info.Name)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", info.Size, len(data))
	}

	f, err := store.Open("invoice")
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue("Sheet1", "A1")
	if err != nil || got != "seed" {
		t.Errorf("GetCellValue = %q, %v, want seed", got, err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "invoice.xlsx" {
		t.Errorf("List = %v, want one entry invoice.xlsx", infos)
	}

	if err := store.Delete("invoice.xlsx"); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	infos, err = store.List()
	if err != nil {
		t.Fatalf("List after delete = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List after delete = %v, want empty", infos)
	}
}

func TestTemplateStoreListSorted(t *testing.T) {
	store := newTestStore(t, 1<<20)
	data := xlsxBytes(t)

	for _, name := range []string{"zebra", "apple", "mango"} {
		if _, err := store.Save(name, bytes.NewReader(data)); err != nil {
			t.Fatalf("Save(%s) = %v", name, err)
		}
	}

	infos, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"apple.xlsx", "mango.xlsx", "zebra.xlsx"}
	if len(infos) != len(want) {
		t.Fatalf("List returned %d entries, want %d", len(infos), len(want))
	}
	for i, w := range want {
		if infos[i].Name != w {
			t.Errorf("List[%d] = %q, want %q", i, infos[i].Name, w)
		}
	}
}

// ----------------------------------------------------------------------------
// Name Validation Tests
// ----------------------------------------------------------------------------

func TestTemplateStoreRejectsUnsafeNames(t *testing.T) {
	store := newTestStore(t, 1<<20)

	tests := []string{
		"",
		"../escape",
		"..\\escape",
		"a/b",
		`a\b`,
		".hidden",
		"..",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Open(name); err == nil {
				t.Errorf("Open(%q) = nil, want error", name)
			}
			if err := store.Delete(name); err == nil {
				t.Errorf("Delete(%q) = nil, want error", name)
			}
		})
	}
}

func TestTemplateStoreOpenMissing(t *testing.T) {
	store := newTestStore(t, 1<<20)

	if _, err := store.Open("absent"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Open(absent) = %v, want ErrTemplateNotFound", err)
	}
	if err := store.Delete("absent"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Delete(absent) = %v, want ErrTemplateNotFound", err)
	}
}

// ----------------------------------------------------------------------------
// Upload Guard Tests
// ----------------------------------------------------------------------------

func TestTemplateStoreSaveRejectsOversize(t *testing.T) {
	data := xlsxBytes(t)
	store := newTestStore(t, int64(len(data)-1))

	_, err := store.Save("big", bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("Save oversize = %v, want byte limit error", err)
	}
}

func TestTemplateStoreSaveRejectsNonWorkbook(t *testing.T) {
	store := newTestStore(t, 1<<20)

	_, err := store.Save("fake", strings.NewReader("just some text, not a workbook"))
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Errorf("Save non-workbook = %v, want unsupported content type error", err)
	}
}
