package core

// templates.go stores uploaded workbook templates as .xlsx files under a
// restricted directory. Names are flat (no separators); every lookup goes
// through path() so traversal attempts die before touching the
// filesystem.

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the OOXML spreadsheet MIME type, used both for
// upload sniffing and for download responses.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TemplateInfo describes one stored template.
type TemplateInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size_bytes"`
	Modified time.Time `json:"modified_at"`
}

// TemplateStore is the directory-backed template library. Each read is a
// complete load into memory, so concurrent compositions need no locking
// against uploads beyond the atomic rename on save.
type TemplateStore struct {
	dir     string
	maxSize int64
	log     *slog.Logger
}

// NewTemplateStore ensures the storage directory exists and returns the
// store. maxSize caps uploads in bytes.
func NewTemplateStore(dir string, maxSize int64, log *slog.Logger) (*TemplateStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template directory: %w", err)
	}
	return &TemplateStore{dir: dir, maxSize: maxSize, log: log}, nil
}

// path maps a template name to its on-disk location. Names must be plain
// filenames; anything that could escape the directory is rejected.
func (s *TemplateStore) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("template name is required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	return filepath.Join(s.dir, ensureXLSX(name)), nil
}

// Save stores an uploaded template. The content is size-capped, sniffed to
// confirm it really is an OOXML spreadsheet, and written through a temp
// file so readers never observe a half-written template.
func (s *TemplateStore) Save(name string, r io.Reader) (*TemplateInfo, error) {
	dst, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("template exceeds the %d byte limit", s.maxSize)
	}

	if mtype := mimetype.Detect(data); !mtype.Is(XLSXContentType) {
		return nil, fmt.Errorf("unsupported content type %s, expected an xlsx workbook", mtype.String())
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("store template: %w", err)
	}

	s.log.Info("template stored", "name", filepath.Base(dst), "bytes", len(data))
	return &TemplateInfo{
		Name:     filepath.Base(dst),
		Size:     int64(len(data)),
		Modified: time.Now().UTC(),
	}, nil
}

// Open loads a stored template into memory.
func (s *TemplateStore) Open(name string) (*excelize.File, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	fh, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer fh.Close()

	f, err := excelize.OpenReader(fh)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return f, nil
}

// List returns every stored template sorted by name.
func (s *TemplateStore) List() ([]TemplateInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read template directory: %w", err)
	}

	infos := make([]TemplateInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".xlsx") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, TemplateInfo{
			Name:     entry.Name(),
			Size:     fi.Size(),
			Modified: fi.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes a stored template.
func (s *TemplateStore) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	s.log.Info("template deleted", "name", filepath.Base(p))
	return nil
}
