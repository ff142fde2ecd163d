// Package workbook holds the in-memory spreadsheet model consumed by the
// extractor, and the decoder that produces it from xlsx bytes.
//
// A Workbook is read-only once decoded. Nothing downstream mutates it.
package workbook

// Workbook is an ordered collection of sheets.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// Sheet is one named table-bearing unit of a workbook.
type Sheet struct {
	Name string
	Rows []Row
}

// Row is a single spreadsheet row.
// Number is the 1-based position of the row in its sheet. Decoders may omit
// fully empty rows, so Number is not necessarily index+1.
type Row struct {
	Number int
	Cells  []Value
}

// Value is a raw cell value. It is one of nil, string, int64, float64, bool,
// time.Time or RichText.
type Value = any

// Run is one styled fragment of a rich-text cell.
type Run struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// RichText is a cell whose text is split into styled runs.
type RichText []Run

// Sheet returns the sheet with exactly the given name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	if w == nil {
		return nil, false
	}
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	if w == nil {
		return nil
	}
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Cell returns the value at the 0-based column index, or nil when the row is
// shorter than that.
func (r Row) Cell(col int) Value {
	if col < 0 || col >= len(r.Cells) {
		return nil
	}
	return r.Cells[col]
}

// New assembles a workbook from already-built sheets.
func New(name string, sheets ...*Sheet) *Workbook {
	return &Workbook{Name: name, Sheets: sheets}
}

// NewSheet builds a sheet whose rows are numbered consecutively from 1.
func NewSheet(name string, rows ...[]Value) *Sheet {
	s := &Sheet{Name: name, Rows: make([]Row, len(rows))}
	for i, cells := range rows {
		s.Rows[i] = Row{Number: i + 1, Cells: cells}
	}
	return s
}
