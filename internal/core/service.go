package core

// service.go is the request-facing surface of the composition engine. It
// ties validation, query-source resolution, template loading, composition,
// audit recording and S3 delivery into the operations the HTTP handlers
// and the CLI call. The service holds no per-request state; every
// operation is a complete pipeline over its arguments.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions carries the tunables the service reads per operation.
type ServiceOptions struct {
	// QueryTimeout bounds each row-source query (default: 30s).
	QueryTimeout time.Duration

	// ComposeTimeout bounds one whole composition (default: 5m).
	ComposeTimeout time.Duration

	// MaxBatchSize caps the number of documents per batch (default: 20).
	MaxBatchSize int

	// BatchParallelism is how many batch members compose at once (default: 4).
	BatchParallelism int
}

func (o *ServiceOptions) withDefaults() ServiceOptions {
	out := *o
	if out.QueryTimeout <= 0 {
		out.QueryTimeout = 30 * time.Second
	}
	if out.ComposeTimeout <= 0 {
		out.ComposeTimeout = 5 * time.Minute
	}
	if out.MaxBatchSize <= 0 {
		out.MaxBatchSize = 20
	}
	if out.BatchParallelism <= 0 {
		out.BatchParallelism = 4
	}
	return out
}

// ServiceDeps are the collaborators wired in from main. Source, Auditor
// and Delivery are optional; a nil Source rejects query-backed tables, a
// nil Auditor skips recording, a nil Delivery skips S3 upload.
type ServiceDeps struct {
	Templates *TemplateStore
	Reports   *ReportRegistry
	Limiter   *ComposeLimiter
	Source    RowSource
	Auditor   *Auditor
	Delivery  *Delivery
	Options   ServiceOptions
	Log       *slog.Logger
}

// Service provides the workbook-composition business logic.
type Service struct {
	templates *TemplateStore
	reports   *ReportRegistry
	limiter   *ComposeLimiter
	source    RowSource
	auditor   *Auditor
	delivery  *Delivery
	opts      ServiceOptions
	log       *slog.Logger
}

// NewService wires the service from its collaborators.
func NewService(deps ServiceDeps) *Service {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		templates: deps.Templates,
		reports:   deps.Reports,
		limiter:   deps.Limiter,
		source:    deps.Source,
		auditor:   deps.Auditor,
		delivery:  deps.Delivery,
		opts:      deps.Options.withDefaults(),
		log:       log,
	}
}

// Templates exposes the template store for the template CRUD handlers.
func (s *Service) Templates() *TemplateStore { return s.templates }

// Reports exposes the report registry for the report handlers.
func (s *Service) Reports() *ReportRegistry { return s.reports }

// Auditor exposes the auditor for the audit listing handler; nil when no
// database pool is configured.
func (s *Service) Auditor() *Auditor { return s.auditor }

// Limiter exposes the compose limiter for the health handler.
func (s *Service) Limiter() *ComposeLimiter { return s.limiter }

// BuildWorkbook composes one workbook document end to end: slot
// acquisition, validation, query resolution, composition, audit and
// delivery.
func (s *Service) BuildWorkbook(ctx context.Context, doc *WorkbookSpec) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := s.compose(ctx, doc)
	s.record(ctx, KindCompose, doc, res, err, start)
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, res)
	return res, nil
}

// compose runs the core pipeline without limiter or bookkeeping. Shared
// by single, batch and report composition.
func (s *Service) compose(ctx context.Context, doc *WorkbookSpec) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ComposeTimeout)
	defer cancel()

	if err := ValidateWorkbook(doc); err != nil {
		return nil, err
	}
	if err := s.resolveSources(ctx, doc); err != nil {
		return nil, err
	}

	var f *excelize.File
	fresh := doc.Template == ""
	if fresh {
		f = excelize.NewFile()
	} else {
		var err error
		f, err = s.templates.Open(doc.Template)
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	res, err := NewComposer(f, fresh, s.log).Compose(doc)
	if err != nil {
		return nil, err
	}

	s.log.Info("workbook composed",
		"filename", res.Filename,
		"sheets", res.Sheets,
		"cells", res.Cells,
		"bytes", len(res.Data),
	)
	return res, nil
}

// resolveSources replaces every query-backed table with its fetched rows
// before composition starts, so the writers only ever see inline data. A
// query returning zero rows drops its table from the sheet.
func (s *Service) resolveSources(ctx context.Context, doc *WorkbookSpec) error {
	for si := range doc.Sheets {
		sheet := &doc.Sheets[si]
		kept := sheet.Tables[:0]
		for _, tbl := range sheet.Tables {
			if tbl.Source == nil {
				kept = append(kept, tbl)
				continue
			}
			if s.source == nil {
				return &QueryError{Stage: "connect", Err: errors.New("no row-source database configured")}
			}

			queryCtx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
			rows, err := s.source.Query(queryCtx, tbl.Source.SQL, tbl.Source.Params)
			cancel()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				s.log.Warn("query source returned no rows, table dropped",
					"sheet", sheet.Name, "table", tbl.Name)
				continue
			}

			tbl.Rows = rows
			tbl.Source = nil
			kept = append(kept, tbl)
		}
		sheet.Tables = kept
	}
	return nil
}

// Plan summarizes what composing a document would write. Query-backed
// tables contribute an unknown row count and are only counted, not sized.
type Plan struct {
	Template     string `json:"template,omitempty"`
	OutputName   string `json:"output_name"`
	Sheets       int    `json:"sheets"`
	PlannedCells int    `json:"planned_cells"`
	Tables       int    `json:"tables"`
	QueryBacked  int    `json:"query_backed_tables"`
}

// PlanWorkbook validates a document without composing it and returns the
// write plan. A stored-template reference is checked for existence.
func (s *Service) PlanWorkbook(doc *WorkbookSpec) (*Plan, error) {
	if err := ValidateWorkbook(doc); err != nil {
		return nil, err
	}
	if doc.Template != "" {
		f, err := s.templates.Open(doc.Template)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	p := &Plan{
		Template:   doc.Template,
		OutputName: ensureXLSX(firstNonEmpty(doc.OutputName, "workbook")),
		Sheets:     len(doc.Sheets),
	}
	for _, sheet := range doc.Sheets {
		p.PlannedCells += len(sheet.Cells)
		for _, rng := range sheet.Ranges {
			for _, row := range rng.Values {
				p.PlannedCells += len(row)
			}
		}
		for _, tbl := range sheet.Tables {
			p.Tables++
			if tbl.Source != nil {
				p.QueryBacked++
				continue
			}
			if len(tbl.Rows) > 0 {
				p.PlannedCells += (len(tbl.Rows) + 1) * tbl.Rows[0].Len()
			}
		}
	}
	return p, nil
}

// BatchResult is a zip archive of independently composed workbooks.
type BatchResult struct {
	Data     []byte
	Filename string
	Count    int
}

// BuildBatch composes every document in parallel (bounded) and bundles
// the outputs into one zip archive. Any member failure fails the whole
// batch; members are independent, so a failed batch writes nothing.
func (s *Service) BuildBatch(ctx context.Context, docs []*WorkbookSpec) (*BatchResult, error) {
	if len(docs) == 0 {
		v := &ValidationError{}
		v.add("workbooks", "", "batch needs at least one document")
		return nil, v
	}
	if len(docs) > s.opts.MaxBatchSize {
		v := &ValidationError{}
		v.add("workbooks", strconv.Itoa(len(docs)),
			fmt.Sprintf("batch exceeds the %d document limit", s.opts.MaxBatchSize))
		return nil, v
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	results := make([]*Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchParallelism)
	for i, doc := range docs {
		g.Go(func() error {
			res, err := s.compose(gctx, doc)
			if err != nil {
				return fmt.Errorf("workbook %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.recordBatch(ctx, docs, nil, err, start)
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(results))
	totalSheets, totalCells := 0, 0
	for i, res := range results {
		name := res.Filename
		if seen[name] {
			name = strconv.Itoa(i+1) + "_" + name
		}
		seen[name] = true

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		if _, err := w.Write(res.Data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		totalSheets += res.Sheets
		totalCells += res.Cells
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	batch := &BatchResult{
		Data:     buf.Bytes(),
		Filename: "workbooks_" + time.Now().Format("20060102_150405") + ".zip",
		Count:    len(results),
	}
	s.recordBatch(ctx, docs, &Result{
		Filename: batch.Filename,
		Data:     batch.Data,
		Sheets:   totalSheets,
		Cells:    totalCells,
	}, nil, start)

	s.log.Info("batch composed",
		"workbooks", batch.Count,
		"bytes", len(batch.Data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return batch, nil
}

// FillTemplate loads a stored template and substitutes the flat data
// mapping into it.
func (s *Service) FillTemplate(ctx context.Context, name string, data map[string]any) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := s.fill(name, data)

	doc := &WorkbookSpec{Template: name, OutputName: filledName(name)}
	s.record(ctx, KindFill, doc, res, err, start)
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, res)
	return res, nil
}

func (s *Service) fill(name string, data map[string]any) (*Result, error) {
	f, err := s.templates.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cells, err := Fill(f, data, s.log)
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize filled template: %w", err)
	}

	res := &Result{
		Data:     buf.Bytes(),
		Filename: filledName(name),
		Sheets:   len(f.GetSheetList()),
		Cells:    cells,
	}
	s.log.Info("template filled",
		"template", name,
		"cells", res.Cells,
		"bytes", len(res.Data),
	)
	return res, nil
}

// RenderReport instantiates a saved report definition with the supplied
// parameters and composes the resulting document.
func (s *Service) RenderReport(ctx context.Context, name string, params map[string]any) (*Result, error) {
	def, err := s.reports.Get(name)
	if err != nil {
		return nil, err
	}
	doc, err := def.Instantiate(params)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := s.compose(ctx, doc)
	s.record(ctx, KindReport, doc, res, err, start)
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, res)
	return res, nil
}

// record writes one audit entry when an auditor is configured.
func (s *Service) record(ctx context.Context, kind AuditKind, doc *WorkbookSpec, res *Result, opErr error, start time.Time) {
	if s.auditor == nil {
		return
	}

	entry := AuditEntry{
		Kind:       kind,
		Template:   doc.Template,
		DurationMS: time.Since(start).Milliseconds(),
		Outcome:    "ok",
		ClientIP:   ClientIPFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
	}
	if res != nil {
		entry.Name = res.Filename
		entry.Sheets = res.Sheets
		entry.Cells = res.Cells
		entry.Bytes = len(res.Data)
	} else {
		entry.Name = doc.OutputName
	}
	if opErr != nil {
		entry.Outcome = "error"
		entry.Error = opErr.Error()
	}

	// Detached from the request so a client disconnect does not lose the
	// record.
	s.auditor.Record(context.WithoutCancel(ctx), entry)
}

func (s *Service) recordBatch(ctx context.Context, docs []*WorkbookSpec, res *Result, opErr error, start time.Time) {
	if s.auditor == nil {
		return
	}
	doc := &WorkbookSpec{OutputName: "batch of " + strconv.Itoa(len(docs))}
	s.record(ctx, KindBatch, doc, res, opErr, start)
}

// deliver pushes the result to S3 when delivery is configured. Runs in
// the background; failure never reaches the client.
func (s *Service) deliver(ctx context.Context, res *Result) {
	if s.delivery == nil {
		return
	}
	go s.delivery.Deliver(context.WithoutCancel(ctx), res)
}

func filledName(template string) string {
	base := strings.TrimSuffix(template, ".xlsx")
	return ensureXLSX(base + "_filled")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
