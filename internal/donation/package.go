// Package donation assembles the package a participant downloads (and that
// is optionally archived) when they agree to donate their reviewed data.
package donation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Package is the donated document.
type Package struct {
	SubmissionID     string                     `json:"submissionId"`
	Timestamp        string                     `json:"timestamp"`
	Data             Data                       `json:"data"`
	DeletedRowCounts Counts                     `json:"deletedRowCounts"`
	ParsingErrors    extract.ParsingErrorReport `json:"parsingErrors"`
	Metadata         Metadata                   `json:"metadata"`
}

// Metadata summarises the package.
type Metadata struct {
	TotalTables          int `json:"totalTables"`
	TotalRemainingRows   int `json:"totalRemainingRows"`
	TotalDeletedRows     int `json:"totalDeletedRows"`
	TotalSheetsNotFound  int `json:"totalSheetsNotFound"`
	TotalTablesNotParsed int `json:"totalTablesNotParsed"`
}

// Data holds the remaining rows per sheet, keyed by display name. Rows are
// encoded as plain value objects without selection state.
type Data []extract.SheetRecords

// MarshalJSON encodes the sheets as an ordered object.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Sheet)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":[")
		for j, r := range s.Records {
			if j > 0 {
				buf.WriteByte(',')
			}
			values, err := r.MarshalValues()
			if err != nil {
				return nil, err
			}
			buf.Write(values)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Counts is an ordered sheet → count mapping.
type Counts []review.SheetCount

// MarshalJSON encodes the counts as an ordered object.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sc := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sc.Sheet)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", sc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewSubmissionID returns a random 16-digit decimal id.
func NewSubmissionID() string {
	return fmt.Sprintf("%d", 1_000_000_000_000_000+rand.Int64N(9_000_000_000_000_000))
}

// Build assembles a package from the session's current state.
func Build(sess *review.Session, id string, now time.Time) *Package {
	return Assemble(sess.Remaining(), sess.DeletedCounts(), sess.ParsingErrors(), id, now)
}

// Assemble builds a package from its parts. Sheet keys are converted to
// display names.
func Assemble(remaining *extract.ParsedData, deleted []review.SheetCount, errs extract.ParsingErrorReport, id string, now time.Time) *Package {
	pkg := &Package{
		SubmissionID:  id,
		Timestamp:     now.UTC().Format(timestampLayout),
		Data:          Data{},
		ParsingErrors: errs.Clone(),
	}
	if pkg.ParsingErrors.SheetsNotFound == nil {
		pkg.ParsingErrors.SheetsNotFound = []string{}
	}

	for _, s := range remaining.Sheets() {
		pkg.Data = append(pkg.Data, extract.SheetRecords{
			Sheet:   profile.DisplayName(s.Sheet),
			Records: s.Records,
		})
		pkg.Metadata.TotalRemainingRows += len(s.Records)
	}

	pkg.DeletedRowCounts = make(Counts, len(deleted))
	for i, sc := range deleted {
		pkg.DeletedRowCounts[i] = review.SheetCount{Sheet: profile.DisplayName(sc.Sheet), Count: sc.Count}
		pkg.Metadata.TotalDeletedRows += sc.Count
	}

	pkg.Metadata.TotalTables = len(pkg.Data)
	pkg.Metadata.TotalSheetsNotFound = len(pkg.ParsingErrors.SheetsNotFound)
	pkg.Metadata.TotalTablesNotParsed = len(pkg.ParsingErrors.TablesNotParsed)
	return pkg
}

// Encode renders the package as indented JSON, the download format.
func (p *Package) Encode() ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode donation package: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("encode donation package: %w", err)
	}
	return out.Bytes(), nil
}

// FileName returns the download name for a package.
func FileName(profileName, id string) string {
	return fmt.Sprintf("%s-data-donation-%s.json", profileName, id)
}
