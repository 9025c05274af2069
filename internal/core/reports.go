package core

// reports.go loads saved report definitions: YAML files describing a
// workbook document with named parameters. Parameters are referenced as
// "{{name}}" inside query parameter lists and the output filename, and
// substituted at render time.

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReportParam declares one named parameter of a report.
type ReportParam struct {
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required" json:"required"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// ReportDefinition is one saved report: a parameterized workbook document.
type ReportDefinition struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Params      []ReportParam `yaml:"params,omitempty" json:"params,omitempty"`
	Workbook    WorkbookSpec  `yaml:"workbook" json:"-"`
}

// ReportRegistry holds every definition loaded from the reports directory
// at startup. The registry is read-only after load; editing a definition
// means editing the file and restarting.
type ReportRegistry struct {
	defs map[string]*ReportDefinition
}

// LoadReports reads every .yaml/.yml file under dir. A missing directory
// yields an empty registry, not an error; a malformed file fails the load
// so a broken definition is caught at startup instead of first render.
func LoadReports(dir string, log *slog.Logger) (*ReportRegistry, error) {
	if log == nil {
		log = slog.Default()
	}
	reg := &ReportRegistry{defs: make(map[string]*ReportDefinition)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("reports directory absent, registry empty", "dir", dir)
			return reg, nil
		}
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read report %s: %w", entry.Name(), err)
		}

		var def ReportDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse report %s: %w", entry.Name(), err)
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		if _, dup := reg.defs[def.Name]; dup {
			return nil, fmt.Errorf("duplicate report name %q in %s", def.Name, entry.Name())
		}

		reg.defs[def.Name] = &def
		log.Info("report definition loaded", "name", def.Name, "file", entry.Name())
	}

	return reg, nil
}

// Get returns a definition by name.
func (r *ReportRegistry) Get(name string) (*ReportDefinition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, ErrReportNotFound
	}
	return def, nil
}

// List returns every definition sorted by name, without workbook bodies.
func (r *ReportRegistry) List() []ReportDefinition {
	out := make([]ReportDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, ReportDefinition{
			Name:        def.Name,
			Description: def.Description,
			Params:      def.Params,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of loaded definitions.
func (r *ReportRegistry) Len() int { return len(r.defs) }

// Instantiate resolves the report's parameters against supplied values
// and returns a render-ready copy of the workbook document. Declared
// defaults fill absent values; a missing required parameter is a
// validation failure.
func (d *ReportDefinition) Instantiate(supplied map[string]any) (*WorkbookSpec, error) {
	resolved := make(map[string]any, len(d.Params))
	v := &ValidationError{}
	for _, p := range d.Params {
		if val, ok := supplied[p.Name]; ok {
			resolved[p.Name] = val
			continue
		}
		if p.Default != nil {
			resolved[p.Name] = p.Default
			continue
		}
		if p.Required {
			v.add("params."+p.Name, "", "required report parameter is missing")
		}
	}
	if len(v.Issues) > 0 {
		return nil, v
	}

	doc := d.Workbook
	doc.OutputName = substituteParam(doc.OutputName, resolved)

	doc.Sheets = make([]SheetSpec, len(d.Workbook.Sheets))
	copy(doc.Sheets, d.Workbook.Sheets)
	for si := range doc.Sheets {
		tables := make([]TableSpec, len(doc.Sheets[si].Tables))
		copy(tables, doc.Sheets[si].Tables)
		for ti := range tables {
			if tables[ti].Source == nil {
				continue
			}
			src := *tables[ti].Source
			src.Params = resolveQueryParams(src.Params, resolved)
			tables[ti].Source = &src
		}
		doc.Sheets[si].Tables = tables
	}

	return &doc, nil
}

// resolveQueryParams maps "{{name}}" query parameters to their resolved
// values, keeping the value's native type so drivers see e.g. an int
// rather than its string form. Non-placeholder parameters pass through.
func resolveQueryParams(params []any, resolved map[string]any) []any {
	if len(params) == 0 {
		return params
	}
	out := make([]any, len(params))
	for i, p := range params {
		s, ok := p.(string)
		if !ok {
			out[i] = p
			continue
		}
		if name, isRef := paramRef(s); isRef {
			if val, found := resolved[name]; found {
				out[i] = val
				continue
			}
		}
		out[i] = substituteParam(s, resolved)
	}
	return out
}

// paramRef reports whether s is exactly one "{{name}}" placeholder.
func paramRef(s string) (string, bool) {
	m := scalarPattern.FindStringSubmatch(s)
	if m != nil && m[0] == s {
		return m[1], true
	}
	return "", false
}

// substituteParam replaces embedded placeholders with string forms, for
// text positions like the output filename.
func substituteParam(s string, resolved map[string]any) string {
	if s == "" {
		return s
	}
	return substitute(s, resolved, nil)
}
