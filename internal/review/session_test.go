package review

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/JonMunkholm/datadonation/internal/extract"
)

func rec(pairs ...string) extract.Record {
	r := extract.Record{Selected: true}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Fields = append(r.Fields, extract.Field{Column: pairs[i], Value: pairs[i+1]})
	}
	return r
}

func testResult() *extract.Result {
	data := extract.NewParsedData(`"Account Device"`, `"PS VR"`, `"Subscription"`)
	data.Set(`"Account Device"`, []extract.Record{
		rec("Console Id", "c1", "Name", "PS5"),
		rec("Console Id", "c2", "Name", "PS4"),
	})
	data.Set(`"Subscription"`, []extract.Record{
		rec("Plan", "Plus"),
		rec("Plan", "Extra", "Note", "trial"),
		rec("Plan", "Premium"),
	})
	return &extract.Result{
		Data: data,
		ParsingErrors: extract.ParsingErrorReport{
			SheetsNotFound:  []string{`"PS VR"`},
			TablesNotParsed: []extract.TableError{},
		},
	}
}

func TestNewSession(t *testing.T) {
	res := testResult()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession("id", "playstation", "export.xlsx", res, now, time.Hour)

	sheets := s.Sheets()
	if len(sheets) != 3 {
		t.Fatalf("len(Sheets()) = %d, want 3", len(sheets))
	}

	var ids []int
	for _, sv := range sheets {
		for _, r := range sv.Rows {
			ids = append(ids, r.ID)
			if !r.Selected() {
				t.Errorf("row %d not selected initially", r.ID)
			}
		}
	}
	if want := []int{1, 2, 3, 4, 5}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	if sheets[0].DisplayName != "Account Device" {
		t.Errorf("DisplayName = %q", sheets[0].DisplayName)
	}
	if got := sheets[2].Columns; !reflect.DeepEqual(got, []string{"Plan", "Note"}) {
		t.Errorf("Columns = %v, want [Plan Note]", got)
	}
	if !s.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", s.ExpiresAt)
	}
}

func TestDeleteSelected(t *testing.T) {
	res := testResult()
	s := NewSession("id", "p", "f", res, time.Now(), time.Hour)

	n, err := s.SetSelection(`"Subscription"`, []int{3, 5, 99})
	if err != nil {
		t.Fatalf("SetSelection() error = %v", err)
	}
	if n != 2 {
		t.Errorf("SetSelection() = %d, want 2", n)
	}

	removed, err := s.DeleteSelected(`"Subscription"`)
	if err != nil {
		t.Fatalf("DeleteSelected() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("DeleteSelected() = %d, want 2", removed)
	}

	sv, _ := s.Sheet(`"Subscription"`)
	if len(sv.Rows) != 1 || sv.Rows[0].ID != 4 {
		t.Fatalf("remaining rows = %+v, want only id 4", sv.Rows)
	}
	if sv.SelectedCount() != 0 {
		t.Errorf("SelectedCount() = %d after delete, want 0", sv.SelectedCount())
	}
	if sv.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", sv.Deleted)
	}

	// Deleting with nothing selected is a no-op.
	if removed, _ := s.DeleteSelected(`"Subscription"`); removed != 0 {
		t.Errorf("second DeleteSelected() = %d, want 0", removed)
	}

	want := []SheetCount{
		{Sheet: `"Account Device"`, Count: 0},
		{Sheet: `"PS VR"`, Count: 0},
		{Sheet: `"Subscription"`, Count: 2},
	}
	if got := s.DeletedCounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("DeletedCounts() = %+v, want %+v", got, want)
	}

	remaining := s.Remaining()
	if got := remaining.TotalRecords(); got != 3 {
		t.Errorf("Remaining().TotalRecords() = %d, want 3", got)
	}

	// The parser output is untouched.
	orig, _ := res.Data.Records(`"Subscription"`)
	if len(orig) != 3 {
		t.Errorf("original records = %d, want 3", len(orig))
	}
}

func TestSelectionOps(t *testing.T) {
	s := NewSession("id", "p", "f", testResult(), time.Now(), time.Hour)

	if err := s.SelectAll(`"Account Device"`, false); err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	sv, _ := s.Sheet(`"Account Device"`)
	if sv.SelectedCount() != 0 {
		t.Errorf("SelectedCount() = %d, want 0", sv.SelectedCount())
	}

	on, err := s.Toggle(`"Account Device"`, 2)
	if err != nil || !on {
		t.Errorf("Toggle() = %v, %v; want true, nil", on, err)
	}
	if _, err := s.Toggle(`"Account Device"`, 3); err == nil {
		t.Error("Toggle() of a row in another sheet expected error")
	}

	if _, err := s.SetSelection("nope", nil); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("SetSelection(nope) error = %v, want ErrUnknownSheet", err)
	}
	if _, err := s.DeleteSelected("nope"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("DeleteSelected(nope) error = %v, want ErrUnknownSheet", err)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewSession("id", "p", "f", testResult(), time.Now(), time.Hour)

	sv, _ := s.Sheet(`"Account Device"`)
	sv.Rows[0].Record.Fields[0].Value = "mutated"
	sv.Rows[0].Record.Selected = false

	again, _ := s.Sheet(`"Account Device"`)
	if again.Rows[0].Value("Console Id") != "c1" || !again.Rows[0].Selected() {
		t.Errorf("session changed through snapshot: %+v", again.Rows[0])
	}
}

func TestStore(t *testing.T) {
	st := NewStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	sess := st.Create("playstation", "export.xlsx", testResult())
	if sess.ID == "" {
		t.Fatal("empty session id")
	}

	got, err := st.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	if _, err := st.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := st.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(expired) error = %v, want ErrSessionNotFound", err)
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d after expired Get, want 0", st.Len())
	}
}

func TestStoreSweepAndDelete(t *testing.T) {
	st := NewStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	a := st.Create("p", "a", testResult())
	now = now.Add(30 * time.Second)
	b := st.Create("p", "b", testResult())

	now = now.Add(45 * time.Second)
	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, err := st.Get(a.ID); err == nil {
		t.Error("swept session still returned")
	}

	if !st.Delete(b.ID) {
		t.Error("Delete() = false for live session")
	}
	if st.Delete(b.ID) {
		t.Error("Delete() = true for removed session")
	}
}
