package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// MapError Tests
// ----------------------------------------------------------------------------

func TestMapErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{
			name: "non select query",
			err:  &QueryError{Stage: "safety", Err: errors.New("only SELECT statements are allowed")},
			code: "DB001",
		},
		{
			name: "forbidden pattern",
			err:  &QueryError{Stage: "safety", Err: errors.New(`query contains a forbidden pattern ";drop"`)},
			code: "DB002",
		},
		{
			name: "no database configured",
			err:  &QueryError{Stage: "connect", Err: errors.New("no row-source database configured")},
			code: "DB003",
		},
		{
			name: "connection refused",
			err:  fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused"),
			code: "DB004",
		},
		{
			name: "malformed cell address",
			err: &ValidationError{Issues: []ValidationIssue{
				{Field: "sheets[0].cells[0].address", Message: "malformed cell address"},
			}},
			code: "VAL001",
		},
		{
			name: "duplicate sheet",
			err: &ValidationError{Issues: []ValidationIssue{
				{Field: "sheets[1].name", Message: "duplicate sheet name"},
			}},
			code: "VAL003",
		},
		{
			name: "generic validation failure",
			err: &ValidationError{Issues: []ValidationIssue{
				{Field: "sheets", Message: "at least one sheet is required"},
			}},
			code: "VAL004",
		},
		{
			name: "template missing",
			err:  ErrTemplateNotFound,
			code: "TPL001",
		},
		{
			name: "template name unsafe",
			err:  fmt.Errorf(`invalid template name "../x"`),
			code: "TPL002",
		},
		{
			name: "upload too large",
			err:  errors.New("template exceeds the 20971520 byte limit"),
			code: "TPL003",
		},
		{
			name: "upload not a workbook",
			err:  errors.New("unsupported content type text/plain, expected an xlsx workbook"),
			code: "TPL004",
		},
		{
			name: "processing failure",
			err:  &ProcessingError{Sheet: "Data", Address: "B2", Op: "cell", Err: errors.New("boom")},
			code: "PRC001",
		},
		{
			name: "serialization failure",
			err:  fmt.Errorf("serialize workbook: %w", errors.New("boom")),
			code: "PRC002",
		},
		{
			name: "report missing",
			err:  ErrReportNotFound,
			code: "RPT001",
		},
		{
			name: "report parameter missing",
			err: &ValidationError{Issues: []ValidationIssue{
				{Field: "params.region", Message: "required report parameter is missing"},
			}},
			code: "RPT002",
		},
		{
			name: "limiter full",
			err:  ErrTooManyCompositions,
			code: "CMP001",
		},
		{
			name: "cancelled",
			err:  context.Canceled,
			code: "CMP002",
		},
		{
			name: "timed out",
			err:  context.DeadlineExceeded,
			code: "CMP003",
		},
		{
			name: "unknown error falls back",
			err:  errors.New("something nobody anticipated"),
			code: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := MapError(tt.err)
			if msg.Code != tt.code {
				t.Errorf("MapError(%v).Code = %s, want %s", tt.err, msg.Code, tt.code)
			}
			if msg.Message == "" || msg.Action == "" {
				t.Errorf("MapError(%v) = %+v, want message and action populated", tt.err, msg)
			}
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	if msg := MapError(nil); msg != (UserMessage{}) {
		t.Errorf("MapError(nil) = %+v, want zero value", msg)
	}
}

// ----------------------------------------------------------------------------
// FormatUserError / IsUserFacing Tests
// ----------------------------------------------------------------------------

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTemplateNotFound)
	if !strings.Contains(got, "(Code: TPL001)") {
		t.Errorf("FormatUserError = %q, want embedded code TPL001", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrTooManyCompositions) {
		t.Error("IsUserFacing(known error) = false, want true")
	}
	if IsUserFacing(errors.New("internal detail")) {
		t.Error("IsUserFacing(unknown error) = true, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}
