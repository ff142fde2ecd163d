package extract

import "github.com/JonMunkholm/datadonation/internal/workbook"

// ExtractRecords builds one record per row after the header that has at
// least one non-empty value in the mapped columns. Rows without any such
// value are skipped. Source row order is kept.
func ExtractRecords(sheet *workbook.Sheet, h Header) []Record {
	records := []Record{}
	if sheet == nil || !h.Found() || len(h.Columns) == 0 {
		return records
	}

	for _, row := range sheet.Rows {
		if row.Number <= h.Row {
			continue
		}
		if rec, ok := buildRecord(row, h.Columns); ok {
			records = append(records, rec)
		}
	}
	return records
}

func buildRecord(row workbook.Row, columns []ColumnIndex) (Record, bool) {
	rec := Record{Fields: make([]Field, 0, len(columns)), Selected: true}
	hasValue := false

	for _, c := range columns {
		v := Normalize(row.Cell(c.Index))
		if Filled(v) {
			hasValue = true
		} else {
			v = nil
		}
		rec.set(c.Column, v)
	}
	return rec, hasValue
}

// set stores v under column. A repeated column overwrites the earlier value
// in its original position.
func (r *Record) set(column string, v workbook.Value) {
	for i := range r.Fields {
		if r.Fields[i].Column == column {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Column: column, Value: v})
}
