package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestWarning(t *testing.T) {
	out := render(t, Warning(WarningParams{
		Copy:           DefaultCopy(),
		Profile:        "playstation",
		FileName:       "export.xlsx",
		Reason:         "No sheets with data",
		SheetsNotFound: []string{"Account Device"},
		TablesNotParsed: []SheetIssue{{
			Sheet:           "Transaction Detail",
			Reason:          "Could not find expected header row",
			ExpectedColumns: []string{"Date", "Amount"},
		}},
	}))

	for _, want := range []string{
		"Account Device",
		"Transaction Detail",
		"Could not find expected header row",
		"Date, Amount",
		"export.xlsx: No sheets with data",
		`href="/upload?agree=yes&amp;profile=playstation"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Warning output missing %q", want)
		}
	}
}

func TestReview_EscapesCells(t *testing.T) {
	out := render(t, Review(ReviewParams{
		Copy:      DefaultCopy(),
		SessionID: "abc",
		ExpiresAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
		Sheets: []SheetTable{{
			Anchor:      "sheet-1",
			Name:        `"Profile"`,
			DisplayName: "Profile",
			Columns:     []string{"Name"},
			Rows: []RowView{
				{ID: 1, Selected: true, Values: []string{"<script>x</script>"}},
				{ID: 2, Selected: false, Values: []string{"bob"}},
			},
			Deleted: 3,
		}},
	}))

	if strings.Contains(out, "<script>x") {
		t.Error("cell value rendered unescaped")
	}
	checks := []string{
		`value="&#34;Profile&#34;"`,
		`name="row" value="1" checked>`,
		`name="row" value="2">`,
		`action="/review/abc/rows"`,
		`action="/review/abc/donate"`,
		"Deleted rows: 3",
		"03:04 UTC",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("Review output missing %q", want)
		}
	}
}

func TestThankYou(t *testing.T) {
	c := DefaultCopy()

	donated := render(t, ThankYou(ThankYouParams{Copy: c, Donated: true, SubmissionID: "1234567890123456", DownloadURL: "/donations/1234567890123456"}))
	if !strings.Contains(donated, "1234567890123456") || !strings.Contains(donated, c.ThankYou.SuccessMessage) {
		t.Errorf("donated page = %s", donated)
	}

	declined := render(t, ThankYou(ThankYouParams{Copy: c}))
	if !strings.Contains(declined, c.ThankYou.DeclineMessage) || strings.Contains(declined, c.ThankYou.SubmissionID) {
		t.Errorf("declined page = %s", declined)
	}
}

func TestParseCopy_Overlay(t *testing.T) {
	c, err := ParseCopy([]byte("siteTitle: Datenspende\nthankyou:\n  title: Danke\n"))
	if err != nil {
		t.Fatalf("ParseCopy() error = %v", err)
	}
	if c.SiteTitle != "Datenspende" || c.ThankYou.Title != "Danke" {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.ThankYou.DeclineMessage != DefaultCopy().ThankYou.DeclineMessage {
		t.Errorf("DeclineMessage = %q, want default", c.ThankYou.DeclineMessage)
	}

	if _, err := ParseCopy([]byte("consent: [")); err == nil {
		t.Error("ParseCopy() with broken YAML expected error")
	}
}
