package extract

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// ColumnIndex binds a column name to its 0-based position in the sheet.
type ColumnIndex struct {
	Column string
	Index  int
}

// Header is a detected header row. Row is the 1-based row number, 0 when no
// header was found.
type Header struct {
	Row     int
	Columns []ColumnIndex
}

// Found reports whether a header row was located.
func (h Header) Found() bool { return h.Row > 0 }

// DetectTargeted returns the first row that matches more than
// p.TargetedMatchRatio of columns. Cells match when they are strings equal
// to the column name after trimming both sides. Only matched columns are
// mapped, in expected order.
func DetectTargeted(sheet *workbook.Sheet, columns []string, p Params) Header {
	if sheet == nil || len(columns) == 0 {
		return Header{}
	}

	for _, row := range sheet.Rows {
		mapping := matchColumns(row, columns)
		if float64(len(mapping))/float64(len(columns)) > p.TargetedMatchRatio {
			return Header{Row: row.Number, Columns: mapping}
		}
	}
	return Header{}
}

func matchColumns(row workbook.Row, columns []string) []ColumnIndex {
	var mapping []ColumnIndex
	for _, col := range columns {
		want := strings.TrimSpace(col)
		for i, cell := range row.Cells {
			s, ok := Normalize(cell).(string)
			if ok && strings.TrimSpace(s) == want {
				mapping = append(mapping, ColumnIndex{Column: col, Index: i})
				break
			}
		}
	}
	return mapping
}

// DetectGeneric returns the first header-like row that has a data row among
// the following p.LookaheadRows non-blank rows. Every non-empty cell of the
// header becomes a column, named by its trimmed text.
func DetectGeneric(sheet *workbook.Sheet, p Params) Header {
	if sheet == nil {
		return Header{}
	}

	for i, row := range sheet.Rows {
		if !isHeaderLike(row, p) || !hasDataBelow(sheet.Rows[i+1:], p) {
			continue
		}

		var cols []ColumnIndex
		for idx, cell := range row.Cells {
			if !Present(cell) {
				continue
			}
			cols = append(cols, ColumnIndex{Column: strings.TrimSpace(Text(cell)), Index: idx})
		}
		return Header{Row: row.Number, Columns: cols}
	}
	return Header{}
}

// isHeaderLike reports whether enough of the row's non-empty cells are short
// labels rather than instructional text.
func isHeaderLike(row workbook.Row, p Params) bool {
	nonEmpty, short := 0, 0
	for _, cell := range row.Cells {
		if !Present(cell) {
			continue
		}
		nonEmpty++
		if isShortLabel(strings.TrimSpace(Text(cell)), p) {
			short++
		}
	}
	if nonEmpty < p.MinHeaderCells {
		return false
	}

	need := int(math.Floor(p.HeaderShortRatio*float64(nonEmpty) + 1e-9))
	if need < p.MinHeaderCells {
		need = p.MinHeaderCells
	}
	return short >= need
}

func isShortLabel(s string, p Params) bool {
	if s == "" || utf8.RuneCountInString(s) >= p.MaxHeaderLength {
		return false
	}
	for _, phrase := range p.BoilerplatePhrases {
		if phrase != "" && strings.Contains(s, phrase) {
			return false
		}
	}
	return true
}

// hasDataBelow looks at the next p.LookaheadRows rows after the header that
// hold any value and reports whether one of them has at least MinDataCells
// non-empty cells. Blank rows do not use up the window.
func hasDataBelow(rows []workbook.Row, p Params) bool {
	checked := 0
	for _, row := range rows {
		if checked >= p.LookaheadRows {
			break
		}
		if !rowFilled(row) {
			continue
		}
		checked++
		if countPresent(row) >= p.MinDataCells {
			return true
		}
	}
	return false
}
