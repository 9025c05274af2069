package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTemplateNotFound reports a template name with no stored file behind it.
var ErrTemplateNotFound = errors.New("template not found")

// ErrReportNotFound reports a report name absent from the registry.
var ErrReportNotFound = errors.New("report not found")

// ValidationIssue is a single offense found in the request document.
type ValidationIssue struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationError collects every offense found in one validation pass.
// It is always produced before any workbook mutation, so a rejected
// document leaves no partial output behind.
type ValidationError struct {
	Issues []ValidationIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid workbook document"
	}
	parts := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		parts[i] = iss.Field + ": " + iss.Message
	}
	return "invalid workbook document: " + strings.Join(parts, "; ")
}

// ProcessingError reports a write failure during composition, carrying the
// offending sheet and, when known, the cell address.
type ProcessingError struct {
	Sheet   string
	Address string
	Op      string // "sheet", "cell", "range", "table", "formatting", "fill"
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s write failed on sheet %q at %s: %v", e.Op, e.Sheet, e.Address, e.Err)
	}
	return fmt.Sprintf("%s write failed on sheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// QueryError reports a row-source database failure.
type QueryError struct {
	Stage string // "safety", "connect", "execute", "scan"
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("row source query failed (%s): %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
