package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// Normalize flattens a raw cell value. Rich text becomes the concatenation
// of its runs with no separator; everything else passes through unchanged.
func Normalize(v workbook.Value) workbook.Value {
	switch x := v.(type) {
	case workbook.RichText:
		var b strings.Builder
		for _, r := range x {
			b.WriteString(r.Text)
		}
		return b.String()
	case *workbook.RichText:
		if x == nil {
			return nil
		}
		return Normalize(*x)
	}
	return v
}

// Text renders a normalized value as a display string. nil renders as "".
func Text(v workbook.Value) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// Present reports whether v carries a value: not nil and not blank once
// rendered and trimmed.
func Present(v workbook.Value) bool {
	v = Normalize(v)
	if v == nil {
		return false
	}
	return strings.TrimSpace(Text(v)) != ""
}

// Filled reports whether v holds anything at all: not nil and not the empty
// string. Whitespace counts. Record extraction uses this looser test, header
// and table detection use Present.
func Filled(v workbook.Value) bool {
	v = Normalize(v)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// rowFilled reports whether any cell of row is Filled.
func rowFilled(row workbook.Row) bool {
	for _, c := range row.Cells {
		if Filled(c) {
			return true
		}
	}
	return false
}

// countPresent returns the number of cells in row that carry a value.
func countPresent(row workbook.Row) int {
	n := 0
	for _, c := range row.Cells {
		if Present(c) {
			n++
		}
	}
	return n
}
