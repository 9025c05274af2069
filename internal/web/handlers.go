package web

// handlers.go implements the workbook composition endpoints: compose,
// validate, batch, saved reports, audit listing and health. Template
// library endpoints live in handlers_templates.go.

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/crumbworks/sheetforge/internal/core"
	"github.com/crumbworks/sheetforge/internal/logging"
	"github.com/go-chi/chi/v5"
)

// decodeJSON reads a size-capped JSON request body into dst. Numbers
// decode as json.Number so integer cell values survive without a float
// round-trip.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Compose.MaxSpecSize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Issues: []core.ValidationIssue{{
			Field:   "body",
			Message: "malformed JSON request body: " + err.Error(),
		}}}
	}
	return nil
}

// writeJSON encodes v and writes it with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// writeAttachment streams a binary download with the given content type.
func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleComposeWorkbook composes one workbook document and streams the
// xlsx back.
//
// POST /api/workbooks
func (s *Server) handleComposeWorkbook(w http.ResponseWriter, r *http.Request) {
	var doc core.WorkbookSpec
	if err := s.decodeJSON(w, r, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.BuildWorkbook(ctx, &doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeAttachment(w, res.Filename, core.XLSXContentType, res.Data)
}

// handleValidateWorkbook validates a document without composing it and
// returns the write plan.
//
// POST /api/workbooks/validate
func (s *Server) handleValidateWorkbook(w http.ResponseWriter, r *http.Request) {
	var doc core.WorkbookSpec
	if err := s.decodeJSON(w, r, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}

	plan, err := s.service.PlanWorkbook(&doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"valid": true,
		"plan":  plan,
	})
}

// batchRequest is the body of a batch composition request.
type batchRequest struct {
	Workbooks []*core.WorkbookSpec `json:"workbooks"`
}

// handleComposeBatch composes several documents and streams back a zip
// archive of the outputs.
//
// POST /api/workbooks/batch
func (s *Server) handleComposeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	batch, err := s.service.BuildBatch(ctx, req.Workbooks)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeAttachment(w, batch.Filename, "application/zip", batch.Data)
}

// handleListReports lists the loaded report definitions.
//
// GET /api/reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"reports": s.service.Reports().List(),
	})
}

// handleRenderReport renders a saved report with the supplied parameters
// and streams the xlsx back.
//
// POST /api/reports/{name}/render
func (s *Server) handleRenderReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	params := make(map[string]any)
	if r.ContentLength != 0 {
		var body struct {
			Params map[string]any `json:"params"`
		}
		if err := s.decodeJSON(w, r, &body); err != nil {
			s.respondError(w, r, err)
			return
		}
		if body.Params != nil {
			params = body.Params
		}
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.RenderReport(ctx, name, params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeAttachment(w, res.Filename, core.XLSXContentType, res.Data)
}

// handleListAudit returns the most recent composition audit entries.
//
// GET /api/audit?limit=N
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	auditor := s.service.Auditor()
	if auditor == nil {
		s.writeJSON(w, r, http.StatusOK, map[string]any{
			"enabled": false,
			"entries": []core.AuditEntry{},
		})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := auditor.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"enabled": true,
		"entries": entries,
	})
}

// handleHealth reports liveness: limiter occupancy, template storage
// reachability and, when configured, database connectivity.
//
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]any{
		"status":  "ok",
		"limiter": s.service.Limiter().Status(),
		"reports": s.service.Reports().Len(),
	}

	if _, err := s.service.Templates().List(); err != nil {
		health["status"] = "degraded"
		health["templates_error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := s.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			health["status"] = "degraded"
			health["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "ok"
		}
	}

	s.writeJSON(w, r, status, health)
}
