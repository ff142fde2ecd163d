package extract

import (
	"strings"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// Resolve finds the workbook sheet for a logical name: exact match first,
// then the first sheet in workbook order whose trimmed name matches
// case-insensitively.
func Resolve(wb *workbook.Workbook, name string) (*workbook.Sheet, bool) {
	if s, ok := wb.Sheet(name); ok {
		return s, true
	}
	if wb == nil {
		return nil, false
	}

	want := strings.TrimSpace(name)
	for _, s := range wb.Sheets {
		if strings.EqualFold(strings.TrimSpace(s.Name), want) {
			return s, true
		}
	}
	return nil, false
}
