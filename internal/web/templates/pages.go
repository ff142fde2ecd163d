package templates

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d2129}` +
	`main{max-width:960px;margin:2rem auto;padding:0 1rem}` +
	`.card{background:#fff;border:1px solid #dde1e6;border-radius:6px;padding:1.5rem;margin-bottom:1.5rem}` +
	`.alert{border-left:4px solid #d9822b;background:#fff8ee;padding:1rem;margin-bottom:1rem}` +
	`.alert.error{border-color:#c23030;background:#fdf0f0}` +
	`table{border-collapse:collapse;width:100%;font-size:.9rem}th,td{border:1px solid #dde1e6;padding:.3rem .5rem;text-align:left}` +
	`.scroll{overflow-x:auto;max-height:28rem}` +
	`button{padding:.45rem .9rem;margin:.5rem .5rem 0 0;cursor:pointer}` +
	`.muted{color:#69707a;font-size:.85rem}.mono{font-family:monospace;font-size:1.1rem}`

// Page wraps body in the site layout.
func Page(c Copy, title string, body templ.Component) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		if title != "" {
			h.text(title)
			h.raw(" | ")
		}
		h.text(c.SiteTitle)
		h.raw("</title><style>", styles, "</style></head><body><main>")
		h.render(body)
		h.raw("</main></body></html>")
	})
}

// ConsentParams renders the landing page.
type ConsentParams struct {
	Copy    Copy
	Profile string
}

// Consent asks for agreement before anything is uploaded.
func Consent(p ConsentParams) templ.Component {
	cc := p.Copy.Consent
	return Page(p.Copy, cc.Title, component(func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(cc.Title)
		h.raw("</h1><p>")
		h.text(cc.Intro)
		h.raw("</p><p>")
		h.text(cc.Process)
		h.raw("</p><p><strong>")
		h.text(cc.DonationAgreement)
		h.raw("</strong></p>")
		h.list(cc.AgreementPoints)
		h.raw(`<form method="get" action="/upload">`)
		if p.Profile != "" {
			h.hidden("profile", p.Profile)
		}
		h.raw(`<label><input type="checkbox" name="agree" value="yes" required> `)
		h.text(cc.AgreementCheckbox)
		h.raw(`</label><br><button type="submit">`)
		h.text(cc.AgreeButton)
		h.raw("</button></form></div>")
	}))
}

// UploadParams renders the upload form.
type UploadParams struct {
	Copy        Copy
	Profile     string
	MaxFileSize int64
	// Error is shown above the form after a rejected upload.
	Error *ErrorParams
}

// ErrorParams is a coded user-facing error.
type ErrorParams struct {
	Message string
	Action  string
	Code    string
}

// Upload is the file picker.
func Upload(p UploadParams) templ.Component {
	uc := p.Copy.Upload
	return Page(p.Copy, uc.Title, component(func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(uc.Title)
		h.raw("</h1><p>")
		h.text(uc.Intro)
		h.raw("</p>")
		if p.Error != nil {
			h.render(ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code))
		}
		h.raw(`<form method="post" action="/upload" enctype="multipart/form-data">`)
		if p.Profile != "" {
			h.hidden("profile", p.Profile)
		}
		h.raw(`<input type="file" name="file" accept=".xlsx" required>`)
		if p.MaxFileSize > 0 {
			h.raw(`<p class="muted">max `)
			h.text(formatBytes(p.MaxFileSize))
			h.raw("</p>")
		}
		h.raw(`<button type="submit">`)
		h.text(uc.UploadButton)
		h.raw(`</button></form><p class="muted">`)
		h.text(uc.Note)
		h.raw("</p></div>")
	}))
}

// SheetIssue is a sheet that was present but yielded no table.
type SheetIssue struct {
	Sheet           string
	Reason          string
	ExpectedColumns []string
}

// WarningParams renders a rejected upload.
type WarningParams struct {
	Copy            Copy
	Profile         string
	FileName        string
	Reason          string
	SheetsNotFound  []string
	TablesNotParsed []SheetIssue
}

// Warning explains why an upload cannot be reviewed and offers a retry.
func Warning(p WarningParams) templ.Component {
	uc := p.Copy.Upload
	return Page(p.Copy, uc.NoDataFound, component(func(h *html) {
		h.raw(`<div class="card"><div class="alert"><h2>`)
		h.text(uc.NoDataFound)
		h.raw("</h2><p>")
		h.text(uc.IncorrectFile)
		h.raw("</p>")
		if detail := joinNonEmpty(": ", p.FileName, p.Reason); detail != "" {
			h.raw(`<p class="muted">`)
			h.text(detail)
			h.raw("</p>")
		}
		h.raw("<p>")
		h.text(uc.PossibleIssues)
		h.raw("</p>")
		h.list(uc.IssuePoints)
		h.raw("</div>")
		parsingIssues(h, uc, p.SheetsNotFound, p.TablesNotParsed)
		h.raw("<p>")
		h.text(uc.CheckFile)
		h.raw(`</p><a href="`)
		h.href(uploadURL(p.Profile))
		h.raw(`"><button type="button">`)
		h.text(uc.TryAgainButton)
		h.raw("</button></a></div>")
	}))
}

func parsingIssues(h *html, uc UploadCopy, missing []string, notParsed []SheetIssue) {
	if len(missing) > 0 {
		h.raw("<h3>")
		h.text(uc.MissingSheets)
		h.raw("</h3>")
		h.list(missing)
	}
	if len(notParsed) > 0 {
		h.raw("<h3>")
		h.text(uc.UnparseableSheets)
		h.raw("</h3><ul>")
		for _, tnp := range notParsed {
			h.raw("<li><strong>")
			h.text(tnp.Sheet)
			h.raw("</strong>: ")
			h.text(tnp.Reason)
			if len(tnp.ExpectedColumns) > 0 {
				h.raw(`<br><span class="muted">`)
				h.text(uc.ExpectedColumns)
				h.raw(": ")
				h.text(strings.Join(tnp.ExpectedColumns, ", "))
				h.raw("</span>")
			}
			h.raw("</li>")
		}
		h.raw("</ul>")
	}
}

// RowView is one reviewable row.
type RowView struct {
	ID       int
	Selected bool
	Values   []string
}

// SheetTable is one sheet of a review session.
type SheetTable struct {
	Anchor      string
	Name        string
	DisplayName string
	Columns     []string
	Rows        []RowView
	Deleted     int
}

// ReviewParams renders a review session.
type ReviewParams struct {
	Copy            Copy
	SessionID       string
	FileName        string
	ExpiresAt       time.Time
	Sheets          []SheetTable
	SheetsNotFound  []string
	TablesNotParsed []SheetIssue
}

// Review shows every extracted row with selection and delete controls.
func Review(p ReviewParams) templ.Component {
	rc := p.Copy.Review
	base := "/review/" + url.PathEscape(p.SessionID)
	return Page(p.Copy, rc.DataOverview, component(func(h *html) {
		h.raw(`<div class="card"><h1>`)
		h.text(rc.DataOverview)
		h.raw("</h1><p>")
		h.text(rc.Intro)
		h.raw(`</p><p class="muted">`)
		h.text(p.FileName)
		if !p.ExpiresAt.IsZero() {
			h.raw(" &middot; ")
			h.text(rc.Expires)
			h.raw(" ")
			h.text(p.ExpiresAt.UTC().Format("15:04 MST"))
		}
		h.raw("</p>")
		if len(p.SheetsNotFound) > 0 || len(p.TablesNotParsed) > 0 {
			h.raw(`<details class="alert"><summary>`)
			h.text(rc.SkippedSheets)
			h.raw("</summary>")
			parsingIssues(h, p.Copy.Upload, p.SheetsNotFound, p.TablesNotParsed)
			h.raw("</details>")
		}
		h.raw("</div>")

		for _, st := range p.Sheets {
			sheetTable(h, rc, base, st)
		}

		h.raw(`<div class="card"><p><strong>`)
		h.text(rc.DonationPrompt)
		h.raw(`</strong></p><form method="post" action="`)
		h.href(base + "/donate")
		h.raw(`" style="display:inline"><button type="submit">`)
		h.text(rc.DonateButton)
		h.raw(`</button></form><form method="post" action="`)
		h.href(base + "/decline")
		h.raw(`" style="display:inline"><button type="submit">`)
		h.text(rc.DeclineButton)
		h.raw(`</button></form><p class="muted">`)
		h.text(rc.Note)
		h.raw("</p></div>")
	}))
}

func sheetTable(h *html, rc ReviewCopy, base string, st SheetTable) {
	h.raw(`<section class="card" id="`)
	h.text(st.Anchor)
	h.raw(`"><h2>`)
	h.text(st.DisplayName)
	h.raw(` <span class="muted">(`)
	h.text(strconv.Itoa(len(st.Rows)))
	h.raw(")</span></h2>")
	if st.Deleted > 0 {
		h.raw(`<p class="muted">`)
		h.textf("%s: %d", rc.DeletedRows, st.Deleted)
		h.raw("</p>")
	}
	if len(st.Rows) == 0 {
		h.raw("<p>")
		h.text(rc.EmptySheet)
		h.raw("</p></section>")
		return
	}

	h.raw(`<form method="post" action="`)
	h.href(base + "/rows")
	h.raw(`">`)
	h.hidden("sheet", st.Name)
	h.raw(`<div class="scroll"><table><thead><tr><th></th>`)
	for _, col := range st.Columns {
		h.raw("<th>")
		h.text(col)
		h.raw("</th>")
	}
	h.raw("</tr></thead><tbody>")
	for _, row := range st.Rows {
		h.raw(`<tr><td><input type="checkbox" name="row" value="`)
		h.text(strconv.Itoa(row.ID))
		h.raw(`"`)
		if row.Selected {
			h.raw(" checked")
		}
		h.raw("></td>")
		for _, v := range row.Values {
			h.raw("<td>")
			h.text(v)
			h.raw("</td>")
		}
		h.raw("</tr>")
	}
	h.raw("</tbody></table></div>")
	for _, b := range [][2]string{
		{"select", rc.UpdateSelection},
		{"all", rc.SelectAll},
		{"none", rc.SelectNone},
		{"delete", rc.DeleteSelectedRows},
	} {
		h.raw(`<button type="submit" name="action" value="`, b[0], `">`)
		h.text(b[1])
		h.raw("</button>")
	}
	h.raw("</form></section>")
}

// ThankYouParams renders the closing page.
type ThankYouParams struct {
	Copy         Copy
	Donated      bool
	SubmissionID string
	DownloadURL  string
}

// ThankYou closes the flow after a donation or a decline.
func ThankYou(p ThankYouParams) templ.Component {
	tc := p.Copy.ThankYou
	return Page(p.Copy, tc.Title, component(func(h *html) {
		h.raw(`<div class="card" style="text-align:center"><h1>`)
		h.text(tc.Title)
		h.raw("</h1>")
		if !p.Donated {
			h.raw("<p>")
			h.text(tc.DeclineMessage)
			h.raw("</p></div>")
			return
		}
		h.raw("<p>")
		h.text(tc.SuccessMessage)
		h.raw("</p>")
		if p.SubmissionID != "" {
			h.raw("<h3>")
			h.text(tc.SubmissionID)
			h.raw(`</h3><p class="mono"><strong>`)
			h.text(p.SubmissionID)
			h.raw(`</strong></p><p class="muted">`)
			h.text(tc.SaveID)
			h.raw("</p>")
		}
		if p.DownloadURL != "" {
			h.raw(`<p><a href="`)
			h.href(p.DownloadURL)
			h.raw(`" download>`)
			h.text(tc.Download)
			h.raw("</a></p>")
		}
		h.raw("</div>")
	}))
}

// ErrorAlert is an inline error box.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="alert error" role="alert"><strong>`)
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw("<p>")
			h.text(action)
			h.raw("</p>")
		}
		if code != "" {
			h.raw(`<p class="muted">`)
			h.text(code)
			h.raw("</p>")
		}
		h.raw("</div>")
	})
}

// ErrorPage is a full page around ErrorAlert with a way back to the start.
func ErrorPage(c Copy, e ErrorParams) templ.Component {
	return Page(c, e.Message, component(func(h *html) {
		h.raw(`<div class="card">`)
		h.render(ErrorAlert(e.Message, e.Action, e.Code))
		h.raw(`<a href="/">`)
		h.text(c.SiteTitle)
		h.raw("</a></div>")
	}))
}

func uploadURL(profile string) string {
	q := url.Values{"agree": {"yes"}}
	if profile != "" {
		q.Set("profile", profile)
	}
	return "/upload?" + q.Encode()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
