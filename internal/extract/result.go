package extract

import (
	"bytes"
	"encoding/json"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// Reasons attached to tables that exist but yielded no records.
const (
	ReasonHeaderNotFound = "Could not find expected header row"
	ReasonNoTable        = "No table structure found"
)

// Field is one captured column value of a record.
type Field struct {
	Column string
	Value  workbook.Value
}

// Record is one extracted row. Fields keep column order: the expected order
// for targeted sheets, the header position order for generic sheets.
type Record struct {
	Fields   []Field
	Selected bool
}

// Get returns the value captured for column.
func (r Record) Get(column string) (workbook.Value, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns returns the captured column names in order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Column
	}
	return cols
}

// HasValue reports whether any captured field is Filled.
func (r Record) HasValue() bool {
	for _, f := range r.Fields {
		if Filled(f.Value) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	fields := make([]Field, len(r.Fields))
	copy(fields, r.Fields)
	return Record{Fields: fields, Selected: r.Selected}
}

// MarshalValues encodes the fields as a JSON object in column order.
func (r Record) MarshalValues() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, f.Column, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes a record as {"values": {...}, "selected": bool}.
// Keeping the values nested means a column named "selected" cannot collide
// with the flag.
func (r Record) MarshalJSON() ([]byte, error) {
	values, err := r.MarshalValues()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"values":`)
	buf.Write(values)
	if r.Selected {
		buf.WriteString(`,"selected":true}`)
	} else {
		buf.WriteString(`,"selected":false}`)
	}
	return buf.Bytes(), nil
}

// SheetRecords is the record list of one logical sheet.
type SheetRecords struct {
	Sheet   string
	Records []Record
}

// ParsedData maps every configured logical sheet to its records, in
// configured order.
type ParsedData struct {
	sheets []SheetRecords
}

// NewParsedData returns data with an empty record list for every name.
func NewParsedData(names ...string) *ParsedData {
	d := &ParsedData{sheets: make([]SheetRecords, len(names))}
	for i, n := range names {
		d.sheets[i] = SheetRecords{Sheet: n, Records: []Record{}}
	}
	return d
}

// Set replaces the records of sheet, appending the sheet if it is new.
func (d *ParsedData) Set(sheet string, records []Record) {
	if records == nil {
		records = []Record{}
	}
	for i := range d.sheets {
		if d.sheets[i].Sheet == sheet {
			d.sheets[i].Records = records
			return
		}
	}
	d.sheets = append(d.sheets, SheetRecords{Sheet: sheet, Records: records})
}

// Names returns the sheet names in order.
func (d *ParsedData) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.sheets))
	for i, s := range d.sheets {
		names[i] = s.Sheet
	}
	return names
}

// Records returns the records of sheet. The slice is shared; use Clone
// before mutating.
func (d *ParsedData) Records(sheet string) ([]Record, bool) {
	if d == nil {
		return nil, false
	}
	for _, s := range d.sheets {
		if s.Sheet == sheet {
			return s.Records, true
		}
	}
	return nil, false
}

// Sheets returns the per-sheet entries in order.
func (d *ParsedData) Sheets() []SheetRecords {
	if d == nil {
		return nil
	}
	out := make([]SheetRecords, len(d.sheets))
	copy(out, d.sheets)
	return out
}

// TotalRecords counts records across all sheets.
func (d *ParsedData) TotalRecords() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.sheets {
		n += len(s.Records)
	}
	return n
}

// Clone deep-copies the data.
func (d *ParsedData) Clone() *ParsedData {
	if d == nil {
		return nil
	}
	out := &ParsedData{sheets: make([]SheetRecords, len(d.sheets))}
	for i, s := range d.sheets {
		recs := make([]Record, len(s.Records))
		for j, r := range s.Records {
			recs[j] = r.Clone()
		}
		out.sheets[i] = SheetRecords{Sheet: s.Sheet, Records: recs}
	}
	return out
}

// MarshalJSON encodes the data as an object whose keys follow sheet order.
func (d *ParsedData) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d.sheets {
		if i > 0 {
			buf.WriteByte(',')
		}
		records := s.Records
		if records == nil {
			records = []Record{}
		}
		if err := writeKeyValue(&buf, s.Sheet, records); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TableError describes a sheet that exists and has content but yielded no
// records. ExpectedColumns is nil for generic sheets and encodes as null.
type TableError struct {
	SheetName       string   `json:"sheetName"`
	Reason          string   `json:"reason"`
	ExpectedColumns []string `json:"expectedColumns"`
}

// ParsingErrorReport lists configured sheets that were missing or
// unparseable. A sheet name appears in at most one of the two lists.
type ParsingErrorReport struct {
	SheetsNotFound  []string     `json:"sheetsNotFound"`
	TablesNotParsed []TableError `json:"tablesNotParsed"`
}

// Empty reports whether nothing went wrong.
func (r ParsingErrorReport) Empty() bool {
	return len(r.SheetsNotFound) == 0 && len(r.TablesNotParsed) == 0
}

// Clone deep-copies the report.
func (r ParsingErrorReport) Clone() ParsingErrorReport {
	out := ParsingErrorReport{
		SheetsNotFound:  append([]string{}, r.SheetsNotFound...),
		TablesNotParsed: make([]TableError, len(r.TablesNotParsed)),
	}
	for i, te := range r.TablesNotParsed {
		te.ExpectedColumns = cloneStrings(te.ExpectedColumns)
		out.TablesNotParsed[i] = te
	}
	return out
}

// Result is the atomic output of one parse.
type Result struct {
	Data          *ParsedData        `json:"data"`
	ParsingErrors ParsingErrorReport `json:"parsingErrors"`
}

func writeKeyValue(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
