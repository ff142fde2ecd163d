package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

type logEntry struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// captureHandler records every log event for assertions.
type captureHandler struct {
	mu      *sync.Mutex
	entries *[]logEntry
	attrs   []slog.Attr
}

func newCapture() (*slog.Logger, func() []logEntry) {
	var entries []logEntry
	h := &captureHandler{mu: &sync.Mutex{}, entries: &entries}
	return slog.New(h), func() []logEntry {
		h.mu.Lock()
		defer h.mu.Unlock()
		out := make([]logEntry, len(entries))
		copy(out, entries)
		return out
	}
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	e := logEntry{level: r.Level, msg: r.Message, attrs: map[string]any{}}
	for _, a := range h.attrs {
		e.attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.entries = append(*h.entries, e)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{mu: h.mu, entries: h.entries, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

var testSheets = []SheetSpec{
	TargetedSheet(`"Account Device"`, "Console Id", "Name"),
	TargetedSheet(`"Trophies"`, "Title", "Trophy", "Grade", "Earned"),
	GenericSheet(`"PS Now"`),
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return b
}

func TestParse_EmptyWorkbook(t *testing.T) {
	logger, entries := newCapture()
	res := New(testSheets, WithLogger(logger)).Parse(workbook.New("empty.xlsx"))

	want := []string{`"Account Device"`, `"Trophies"`, `"PS Now"`}
	if !reflect.DeepEqual(res.ParsingErrors.SheetsNotFound, want) {
		t.Errorf("SheetsNotFound = %v, want %v", res.ParsingErrors.SheetsNotFound, want)
	}
	if len(res.ParsingErrors.TablesNotParsed) != 0 {
		t.Errorf("TablesNotParsed = %v, want empty", res.ParsingErrors.TablesNotParsed)
	}
	if got := res.Data.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Data.Names() = %v, want %v", got, want)
	}

	wantJSON := `{"data":{"\"Account Device\"":[],"\"Trophies\"":[],"\"PS Now\"":[]},` +
		`"parsingErrors":{"sheetsNotFound":["\"Account Device\"","\"Trophies\"","\"PS Now\""],"tablesNotParsed":[]}}`
	if got := string(mustJSON(t, res)); got != wantJSON {
		t.Errorf("JSON = %s\nwant  %s", got, wantJSON)
	}

	notFound := 0
	for _, e := range entries() {
		if e.msg == "sheet not found" && e.attrs["reason"] == LogReasonSheetNotFound {
			notFound++
		}
	}
	if notFound != 3 {
		t.Errorf("sheet not found events = %d, want 3", notFound)
	}
}

func TestParse_PopulatedTargetedSheet(t *testing.T) {
	sheet := workbook.NewSheet(`"Account Device"`,
		[]workbook.Value{"Your devices"},
		nil,
		[]workbook.Value{"Console Id", "Name"},
		[]workbook.Value{int64(1), "PS5"},
		[]workbook.Value{nil, "PS4"},
		[]workbook.Value{int64(3)},
		[]workbook.Value{nil, ""},
	)
	res := New(testSheets[:1], WithLogger(slog.New(slog.DiscardHandler))).Parse(workbook.New("b.xlsx", sheet))

	records, ok := res.Data.Records(`"Account Device"`)
	if !ok {
		t.Fatal("sheet missing from data")
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i, r := range records {
		if !r.Selected {
			t.Errorf("records[%d].Selected = false", i)
		}
		if got := r.Columns(); !reflect.DeepEqual(got, []string{"Console Id", "Name"}) {
			t.Errorf("records[%d].Columns() = %v", i, got)
		}
	}
	if v, _ := records[1].Get("Console Id"); v != nil {
		t.Errorf("records[1] Console Id = %#v, want nil", v)
	}
	if v, _ := records[2].Get("Console Id"); v != int64(3) {
		t.Errorf("records[2] Console Id = %#v, want 3", v)
	}
	if !res.ParsingErrors.Empty() {
		t.Errorf("ParsingErrors = %+v, want empty", res.ParsingErrors)
	}
}

func TestParse_PresentButUnparseable(t *testing.T) {
	sheet := workbook.NewSheet(`"Trophies"`,
		[]workbook.Value{"If data is found, the below table shows your trophies"},
		[]workbook.Value{"Title", "Trophy", "Something", "Else"},
		[]workbook.Value{"Game", "Gold"},
	)
	logger, entries := newCapture()
	res := New(testSheets[1:2], WithLogger(logger)).Parse(workbook.New("b.xlsx", sheet))

	want := []TableError{{
		SheetName:       `"Trophies"`,
		Reason:          ReasonHeaderNotFound,
		ExpectedColumns: []string{"Title", "Trophy", "Grade", "Earned"},
	}}
	if !reflect.DeepEqual(res.ParsingErrors.TablesNotParsed, want) {
		t.Errorf("TablesNotParsed = %+v, want %+v", res.ParsingErrors.TablesNotParsed, want)
	}
	if len(res.ParsingErrors.SheetsNotFound) != 0 {
		t.Errorf("SheetsNotFound = %v, want empty", res.ParsingErrors.SheetsNotFound)
	}

	var found bool
	for _, e := range entries() {
		if e.msg == "header row not found" {
			found = true
			if e.attrs["sheet"] != `"Trophies"` || e.attrs["mode"] != "targeted" || e.attrs["reason"] != LogReasonHeaderNotFound {
				t.Errorf("event attrs = %v", e.attrs)
			}
		}
	}
	if !found {
		t.Error("no header row not found event")
	}
}

func TestParse_GenericUnparseableHasNullColumns(t *testing.T) {
	sheet := workbook.NewSheet(`"PS Now"`,
		[]workbook.Value{"If data is found it will be listed here"},
	)
	res := New(testSheets[2:], WithLogger(slog.New(slog.DiscardHandler))).Parse(workbook.New("b.xlsx", sheet))

	want := `{"sheetsNotFound":[],"tablesNotParsed":[{"sheetName":"\"PS Now\"","reason":"No table structure found","expectedColumns":null}]}`
	if got := string(mustJSON(t, res.ParsingErrors)); got != want {
		t.Errorf("JSON = %s, want %s", got, want)
	}
}

func TestParse_GenuinelyEmptySheet(t *testing.T) {
	rows := make([][]workbook.Value, 25)
	rows[22] = []workbook.Value{"late content", "x"}
	sheet := workbook.NewSheet(`"Trophies"`, rows...)

	res := New(testSheets[1:2], WithLogger(slog.New(slog.DiscardHandler))).Parse(workbook.New("b.xlsx", sheet))
	if !res.ParsingErrors.Empty() {
		t.Errorf("ParsingErrors = %+v, want empty for content beyond the scan window", res.ParsingErrors)
	}
	if recs, _ := res.Data.Records(`"Trophies"`); len(recs) != 0 {
		t.Errorf("records = %d, want 0", len(recs))
	}
}

func TestParse_Determinism(t *testing.T) {
	wb := workbook.New("b.xlsx",
		workbook.NewSheet(`"PS Now"`,
			[]workbook.Value{"Plan", "Start", "End"},
			[]workbook.Value{"Monthly", "2020-01-01", "2020-02-01"},
			[]workbook.Value{workbook.RichText{{Text: "Ann"}, {Text: "ual", Bold: true}}, "2021", nil},
		),
		workbook.NewSheet(`"Trophies"`, []workbook.Value{"noise", "noise"}),
	)
	p := New(testSheets, WithLogger(slog.New(slog.DiscardHandler)))

	first := mustJSON(t, p.Parse(wb))
	second := mustJSON(t, p.Parse(wb))
	if !bytes.Equal(first, second) {
		t.Errorf("parses differ:\n%s\n%s", first, second)
	}
}

func TestParse_DisjointAndComplete(t *testing.T) {
	wb := workbook.New("b.xlsx",
		workbook.NewSheet(" account device ",
			[]workbook.Value{"Console Id", "Name"},
			[]workbook.Value{"c1", "n1"},
		),
		workbook.NewSheet(`"Trophies"`, []workbook.Value{"noise"}),
	)
	sheets := append([]SheetSpec{}, testSheets...)
	sheets[0] = TargetedSheet(" Account Device", "Console Id", "Name")

	res := New(sheets, WithLogger(slog.New(slog.DiscardHandler))).Parse(wb)

	names := res.Data.Names()
	for i, s := range sheets {
		if names[i] != s.Name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], s.Name)
		}
	}
	if len(names) != len(sheets) {
		t.Errorf("len(Names()) = %d, want %d", len(names), len(sheets))
	}

	for _, s := range sheets {
		n := 0
		for _, nf := range res.ParsingErrors.SheetsNotFound {
			if nf == s.Name {
				n++
			}
		}
		for _, te := range res.ParsingErrors.TablesNotParsed {
			if te.SheetName == s.Name {
				n++
			}
		}
		if recs, _ := res.Data.Records(s.Name); len(recs) > 0 {
			n++
		}
		if n > 1 {
			t.Errorf("sheet %q classified %d times", s.Name, n)
		}
	}

	for _, sr := range res.Data.Sheets() {
		for i, r := range sr.Records {
			if !r.HasValue() {
				t.Errorf("%s record %d has no value", sr.Sheet, i)
			}
		}
	}

	if recs, _ := res.Data.Records(" Account Device"); len(recs) != 1 {
		t.Errorf("case-insensitive resolved sheet records = %d, want 1", len(recs))
	}
}

func TestParse_DoesNotMutateWorkbook(t *testing.T) {
	rt := workbook.RichText{{Text: "Con"}, {Text: "sole Id"}}
	sheet := workbook.NewSheet(`"Account Device"`,
		[]workbook.Value{rt, "Name"},
		[]workbook.Value{"c1", "n1"},
	)
	wb := workbook.New("b.xlsx", sheet)

	res := New(testSheets[:1], WithLogger(slog.New(slog.DiscardHandler))).Parse(wb)

	if _, ok := sheet.Rows[0].Cells[0].(workbook.RichText); !ok {
		t.Error("rich text cell was replaced in the workbook")
	}
	if recs, _ := res.Data.Records(`"Account Device"`); len(recs) != 1 {
		t.Errorf("records = %d, want 1 (rich-text header should match)", len(recs))
	}
}

func TestParse_CustomParams(t *testing.T) {
	sheet := workbook.NewSheet(`"Trophies"`,
		[]workbook.Value{"Title", "Trophy"},
		[]workbook.Value{"Game", "Gold"},
	)
	params := DefaultParams()
	params.TargetedMatchRatio = 0.4

	res := New(testSheets[1:2], WithParams(params), WithLogger(slog.New(slog.DiscardHandler))).
		Parse(workbook.New("b.xlsx", sheet))
	if recs, _ := res.Data.Records(`"Trophies"`); len(recs) != 1 {
		t.Errorf("records = %d, want 1 with ratio 0.4", len(recs))
	}
}
