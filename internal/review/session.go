// Package review holds the user's working copy of a parse result while they
// inspect it, deselect rows and delete rows before donating.
//
// A Session deep-copies the parser output on creation. Nothing done here is
// visible through the original extract.Result.
package review

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/profile"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("review session not found")
	// ErrUnknownSheet is returned for sheet names the session does not hold.
	ErrUnknownSheet = errors.New("unknown sheet")
)

// Row is a record with a session-wide id. Ids are sequential across sheets
// in sheet order, starting at 1.
type Row struct {
	ID     int
	Record extract.Record
}

// Selected reports whether the row is selected.
func (r Row) Selected() bool { return r.Record.Selected }

// Value returns the display text of column.
func (r Row) Value(column string) string {
	v, _ := r.Record.Get(column)
	return extract.Text(v)
}

// SheetView is a read-only snapshot of one sheet.
type SheetView struct {
	Name        string
	DisplayName string
	Columns     []string
	Rows        []Row
	Deleted     int
}

// SelectedCount returns the number of selected rows.
func (v SheetView) SelectedCount() int {
	n := 0
	for _, r := range v.Rows {
		if r.Selected() {
			n++
		}
	}
	return n
}

type sheetState struct {
	name    string
	columns []string
	rows    []Row
	deleted int
}

// Session is one upload under review. It is safe for concurrent use.
type Session struct {
	ID        string
	Profile   string
	FileName  string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu     sync.RWMutex
	sheets []*sheetState
	errors extract.ParsingErrorReport
}

// NewSession copies res into a new session. Every row starts selected.
func NewSession(id, profileName, fileName string, res *extract.Result, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		ID:        id,
		Profile:   profileName,
		FileName:  fileName,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if res == nil {
		return s
	}

	s.errors = res.ParsingErrors.Clone()
	nextID := 1
	for _, sr := range res.Data.Clone().Sheets() {
		st := &sheetState{name: sr.Sheet, rows: make([]Row, len(sr.Records))}
		for i, rec := range sr.Records {
			rec.Selected = true
			st.rows[i] = Row{ID: nextID, Record: rec}
			nextID++
		}
		st.columns = columnsOf(sr.Records)
		s.sheets = append(s.sheets, st)
	}
	return s
}

// columnsOf returns the union of record columns in first-seen order.
func columnsOf(records []extract.Record) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range records {
		for _, f := range r.Fields {
			if !seen[f.Column] {
				seen[f.Column] = true
				cols = append(cols, f.Column)
			}
		}
	}
	return cols
}

// Expired reports whether the session outlived its TTL at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func (s *Session) sheet(name string) (*sheetState, error) {
	for _, st := range s.sheets {
		if st.name == name {
			return st, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, name)
}

func (st *sheetState) view() SheetView {
	rows := make([]Row, len(st.rows))
	for i, r := range st.rows {
		rows[i] = Row{ID: r.ID, Record: r.Record.Clone()}
	}
	return SheetView{
		Name:        st.name,
		DisplayName: profile.DisplayName(st.name),
		Columns:     append([]string(nil), st.columns...),
		Rows:        rows,
		Deleted:     st.deleted,
	}
}

// Sheets returns snapshots of every sheet in configured order, including
// sheets without rows.
func (s *Session) Sheets() []SheetView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SheetView, len(s.sheets))
	for i, st := range s.sheets {
		out[i] = st.view()
	}
	return out
}

// Sheet returns a snapshot of one sheet.
func (s *Session) Sheet(name string) (SheetView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.sheet(name)
	if err != nil {
		return SheetView{}, err
	}
	return st.view(), nil
}

// SetSelection replaces the selection of a sheet: rows whose id is in ids
// become selected, all others are deselected. Unknown ids are ignored.
// It returns the number of selected rows.
func (s *Session) SetSelection(sheet string, ids []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.sheet(sheet)
	if err != nil {
		return 0, err
	}

	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	n := 0
	for i := range st.rows {
		st.rows[i].Record.Selected = want[st.rows[i].ID]
		if st.rows[i].Record.Selected {
			n++
		}
	}
	return n, nil
}

// Toggle flips the selection of one row and returns its new state.
func (s *Session) Toggle(sheet string, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.sheet(sheet)
	if err != nil {
		return false, err
	}
	for i := range st.rows {
		if st.rows[i].ID == id {
			st.rows[i].Record.Selected = !st.rows[i].Record.Selected
			return st.rows[i].Record.Selected, nil
		}
	}
	return false, fmt.Errorf("row %d not in sheet %s", id, sheet)
}

// SelectAll selects or deselects every row of a sheet.
func (s *Session) SelectAll(sheet string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.sheet(sheet)
	if err != nil {
		return err
	}
	for i := range st.rows {
		st.rows[i].Record.Selected = selected
	}
	return nil
}

// DeleteSelected removes the selected rows of a sheet, adds them to the
// sheet's deleted count and clears the selection. It returns the number of
// rows removed.
func (s *Session) DeleteSelected(sheet string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.sheet(sheet)
	if err != nil {
		return 0, err
	}

	kept := st.rows[:0]
	removed := 0
	for _, r := range st.rows {
		if r.Record.Selected {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	st.rows = kept
	st.deleted += removed
	return removed, nil
}

// SheetCount pairs a sheet name with a count.
type SheetCount struct {
	Sheet string
	Count int
}

// DeletedCounts returns the deleted row count of every sheet, in order.
func (s *Session) DeletedCounts() []SheetCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SheetCount, len(s.sheets))
	for i, st := range s.sheets {
		out[i] = SheetCount{Sheet: st.name, Count: st.deleted}
	}
	return out
}

// Remaining returns a copy of every row not deleted, selected or not.
func (s *Session) Remaining() *extract.ParsedData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.sheets))
	for i, st := range s.sheets {
		names[i] = st.name
	}
	data := extract.NewParsedData(names...)
	for _, st := range s.sheets {
		recs := make([]extract.Record, len(st.rows))
		for i, r := range st.rows {
			recs[i] = r.Record.Clone()
		}
		data.Set(st.name, recs)
	}
	return data
}

// ParsingErrors returns a copy of the report captured at upload time.
func (s *Session) ParsingErrors() extract.ParsingErrorReport {
	return s.errors.Clone()
}
