package core

// convert.go normalizes values decoded from JSON documents or returned by
// database drivers into the small set of types the workbook layer stores
// natively:
//   - json.Number becomes int64 when integral, float64 otherwise
//   - []byte from database/sql drivers becomes string
//   - time.Time passes through so date formats apply to real timestamps
//   - nil stays nil (an empty cell)

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// cellValue coerces v into a type the workbook layer writes natively.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return f
		}
		return string(t)
	case []byte:
		return string(t)
	default:
		return v
	}
}

// displayString renders v the way it reads in a cell, for placeholder
// substitution and column-width measurement. Floats drop their trailing
// zeros, so 1.0 renders as "1".
func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return string(t)
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}
