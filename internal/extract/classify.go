package extract

import "github.com/JonMunkholm/datadonation/internal/workbook"

// Classify decides whether a resolved sheet that produced no records should
// be reported. It returns nil when the first p.ClassifierScanRows row
// positions hold no content, which means the sheet is genuinely empty.
func Classify(sheet *workbook.Sheet, spec SheetSpec, p Params) *TableError {
	if !hasLeadingContent(sheet, p.ClassifierScanRows) {
		return nil
	}

	te := &TableError{SheetName: spec.Name}
	switch s := spec.Strategy.(type) {
	case Targeted:
		te.Reason = ReasonHeaderNotFound
		te.ExpectedColumns = cloneStrings(s.Columns)
	default:
		te.Reason = ReasonNoTable
	}
	return te
}

func hasLeadingContent(sheet *workbook.Sheet, scanRows int) bool {
	if sheet == nil {
		return false
	}
	for _, row := range sheet.Rows {
		if row.Number > scanRows {
			break
		}
		if countPresent(row) > 0 {
			return true
		}
	}
	return false
}
