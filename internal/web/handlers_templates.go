package web

// handlers_templates.go implements the template library endpoints:
// multipart upload, listing, deletion and placeholder filling.

import (
	"net/http"

	"github.com/crumbworks/sheetforge/internal/core"
	"github.com/crumbworks/sheetforge/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleUploadTemplate stores an uploaded xlsx template.
//
// POST /api/templates (multipart/form-data, field "file", optional field
// "name" overriding the upload's filename)
func (s *Server) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Templates.MaxFileSize+4096)
	if err := r.ParseMultipartForm(s.cfg.Templates.MaxFileSize); err != nil {
		s.respondError(w, r, &core.ValidationError{Issues: []core.ValidationIssue{{
			Field:   "file",
			Message: "malformed multipart upload: " + err.Error(),
		}}})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, &core.ValidationError{Issues: []core.ValidationIssue{{
			Field:   "file",
			Message: "template file is required",
		}}})
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	info, err := s.service.Templates().Save(name, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("template uploaded",
		"name", info.Name,
		"bytes", info.Size,
	)
	s.writeJSON(w, r, http.StatusCreated, info)
}

// handleListTemplates lists the stored templates.
//
// GET /api/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.Templates().List()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if infos == nil {
		infos = []core.TemplateInfo{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"templates": infos})
}

// handleDeleteTemplate removes a stored template.
//
// DELETE /api/templates/{name}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.service.Templates().Delete(name); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fillRequest is the body of a template fill request.
type fillRequest struct {
	Data map[string]any `json:"data"`
}

// handleFillTemplate substitutes placeholder data into a stored template
// and streams the filled xlsx back.
//
// POST /api/templates/{name}/fill
func (s *Server) handleFillTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req fillRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Data == nil {
		req.Data = make(map[string]any)
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.FillTemplate(ctx, name, req.Data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeAttachment(w, res.Filename, core.XLSXContentType, res.Data)
}
