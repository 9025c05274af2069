package core

// error_messages.go defines user-friendly error messages with codes for
// support reference. When users encounter errors, they can quote the
// error code to support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
//   - DB001-DB099: row-source database errors
//   - VAL001-VAL099: document validation errors
//   - TPL001-TPL099: template storage errors
//   - PRC001-PRC099: composition processing errors
//   - RPT001-RPT099: report definition errors
//   - CMP001-CMP099: throttling and cancellation
//   - ERR000: fallback when no pattern matches
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones. When a user reports ERR000, check application logs
// for the original technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Patterns are matched with strings.Contains and the first
// match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Row-Source Database Errors (DB001-DB005)
	// =========================================================================
	{
		pattern: "only select statements",
		msg: UserMessage{
			Message: "The table query is not a plain SELECT",
			Action:  "Query sources may only read data; rewrite the query as a SELECT",
			Code:    "DB001",
		},
	},
	{
		pattern: "forbidden pattern",
		msg: UserMessage{
			Message: "The table query contains a blocked SQL pattern",
			Action:  "Remove stacked statements and other non-SELECT constructs from the query",
			Code:    "DB002",
		},
	},
	{
		pattern: "no row-source database configured",
		msg: UserMessage{
			Message: "Query-backed tables need a configured database",
			Action:  "Set DATABASE_URL or DATABASE_DRIVER/DATABASE_DSN, or inline the table rows",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the row-source database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Document Validation Errors (VAL001-VAL004)
	// =========================================================================
	{
		pattern: "malformed cell address",
		msg: UserMessage{
			Message: "A cell address in the document is malformed",
			Action:  "Use column letters plus a row number, e.g. B2 or AA10",
			Code:    "VAL001",
		},
	},
	{
		pattern: "malformed range address",
		msg: UserMessage{
			Message: "A range address in the document is malformed",
			Action:  "Use start:end form with valid cell addresses, e.g. A1:C10",
			Code:    "VAL002",
		},
	},
	{
		pattern: "duplicate sheet name",
		msg: UserMessage{
			Message: "Two sheets in the document share a name",
			Action:  "Give every sheet a unique name",
			Code:    "VAL003",
		},
	},
	// Before the generic VAL004 pattern: a missing report parameter also
	// surfaces as a validation error, and the specific pattern must win.
	{
		pattern: "required report parameter",
		msg: UserMessage{
			Message: "A required report parameter is missing",
			Action:  "Supply every parameter the report declares as required",
			Code:    "RPT002",
		},
	},
	{
		pattern: "invalid workbook document",
		msg: UserMessage{
			Message: "The workbook document failed validation",
			Action:  "Review the listed issues and resubmit the corrected document",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// Template Storage Errors (TPL001-TPL004)
	// =========================================================================
	{
		pattern: "template not found",
		msg: UserMessage{
			Message: "The requested template does not exist",
			Action:  "List stored templates to check the name, or upload it first",
			Code:    "TPL001",
		},
	},
	{
		pattern: "invalid template name",
		msg: UserMessage{
			Message: "The template name is not a plain filename",
			Action:  "Use a flat name without path separators",
			Code:    "TPL002",
		},
	},
	{
		pattern: "byte limit",
		msg: UserMessage{
			Message: "The uploaded template is too large",
			Action:  "Reduce the template file size and upload again",
			Code:    "TPL003",
		},
	},
	{
		pattern: "unsupported content type",
		msg: UserMessage{
			Message: "The uploaded file is not an xlsx workbook",
			Action:  "Save the file in xlsx format and upload again",
			Code:    "TPL004",
		},
	},

	// =========================================================================
	// Processing Errors (PRC001-PRC002)
	// =========================================================================
	{
		pattern: "write failed on sheet",
		msg: UserMessage{
			Message: "A sheet could not be composed",
			Action:  "Check the reported sheet and address in the error detail",
			Code:    "PRC001",
		},
	},
	{
		pattern: "serialize workbook",
		msg: UserMessage{
			Message: "The composed workbook could not be serialized",
			Action:  "Please try again; contact support if it persists",
			Code:    "PRC002",
		},
	},

	// =========================================================================
	// Report Errors (RPT001; RPT002 is listed with the validation patterns)
	// =========================================================================
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "The requested report definition does not exist",
			Action:  "List available reports to check the name",
			Code:    "RPT001",
		},
	},

	// =========================================================================
	// Throttling and Cancellation (CMP001-CMP003)
	// =========================================================================
	{
		pattern: "too many concurrent compositions",
		msg: UserMessage{
			Message: "The system is busy composing other workbooks",
			Action:  "Please wait a moment and try again",
			Code:    "CMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "CMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The composition timed out",
			Action:  "Split the document into smaller workbooks or try again later",
			Code:    "CMP003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "CMP004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It
// searches the known patterns (case-insensitive) and returns the first
// match, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether the error matches a known pattern (not the
// generic ERR000 fallback) and can be shown to users as-is.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
