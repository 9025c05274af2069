package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// cellRefPattern is the address grammar: column letters then row digits.
var cellRefPattern = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)

// ResolveAddress converts a column-letter/row-number anchor plus a column
// offset into a target cell address.
//
// The column is computed with full base-26 arithmetic, so offsets past "Z"
// extend into multi-letter columns ("Z" + 1 → "AA") instead of wrapping
// back to "A". Within a single 26-letter span the result is identical to
// the simpler single-letter encoding.
func ResolveAddress(anchorCol string, anchorRow, colOffset int) (string, error) {
	if anchorRow < 1 {
		return "", fmt.Errorf("anchor row must be positive, got %d", anchorRow)
	}

	idx, err := excelize.ColumnNameToNumber(anchorCol)
	if err != nil {
		return "", fmt.Errorf("invalid anchor column %q: %w", anchorCol, err)
	}

	target := idx + colOffset
	if target < 1 {
		return "", fmt.Errorf("column offset %d moves %q before column A", colOffset, anchorCol)
	}

	name, err := excelize.ColumnNumberToName(target)
	if err != nil {
		return "", fmt.Errorf("column %d: %w", target, err)
	}

	return name + strconv.Itoa(anchorRow), nil
}

// ParseCellRef splits an address like "B2" into its column letters and
// 1-based row number.
func ParseCellRef(ref string) (col string, row int, err error) {
	m := cellRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", 0, fmt.Errorf("malformed cell address %q", ref)
	}

	row, err = strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return "", 0, fmt.Errorf("malformed cell address %q: row must be positive", ref)
	}

	return m[1], row, nil
}

// RangeStart returns the anchor of a range string like "A3:F9". The end
// component is checked against the grammar but never bounds writing; a
// bare address without an end is also accepted.
func RangeStart(ref string) (col string, row int, err error) {
	start, end, hasEnd := strings.Cut(ref, ":")
	if hasEnd && !cellRefPattern.MatchString(end) {
		return "", 0, fmt.Errorf("malformed range %q: bad end address", ref)
	}
	return ParseCellRef(start)
}

// validCellRef reports whether ref matches the address grammar.
func validCellRef(ref string) bool {
	return cellRefPattern.MatchString(ref)
}

// validRangeRef reports whether ref is a valid address or start:end pair.
func validRangeRef(ref string) bool {
	start, end, hasEnd := strings.Cut(ref, ":")
	if hasEnd {
		return cellRefPattern.MatchString(start) && cellRefPattern.MatchString(end)
	}
	return cellRefPattern.MatchString(start)
}
