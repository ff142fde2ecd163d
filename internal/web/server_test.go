package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/datadonation/internal/config"
	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/JonMunkholm/datadonation/internal/workbook"
	"github.com/xuri/excelize/v2"
)

const accountDevice = `"Account Device"`

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Session: config.SessionConfig{TTL: time.Hour},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *donation.MemoryStore) {
	t.Helper()

	prof, err := profile.Get(profile.PlayStation)
	if err != nil {
		t.Fatalf("profile.Get: %v", err)
	}
	store := donation.NewMemoryStore()
	svc, err := core.NewService(core.Options{
		Profile:     prof,
		Params:      extract.DefaultParams(),
		Decode:      workbook.DefaultDecodeOptions(),
		MaxFileSize: cfg.Upload.MaxFileSize,
		Limiter:     core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Sessions:    review.NewStore(cfg.Session.TTL),
		Donations:   store,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s := NewServer(svc, cfg, templates.DefaultCopy())
	t.Cleanup(func() {
		for _, rl := range s.limiters {
			rl.Stop()
		}
	})
	return s, store
}

// xlsx builds a workbook with one sheet.
func xlsx(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func devicesWorkbook(t *testing.T) []byte {
	return xlsx(t, accountDevice, [][]any{
		{"If data is found, the below table shows your devices"},
		{},
		{"Console Id", "Name", "Console Type"},
		{"c1", "My console", "PS5"},
		{"c2", "Old console", "PS4"},
	})
}

// multipartRequest builds a POST with a "file" part and extra fields.
func multipartRequest(t *testing.T, target string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if data != nil {
		part, err := mw.CreateFormFile("file", "export.xlsx")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	h := decode[HealthResponse](t, rec)
	if h.Status != "ok" || h.Profile != profile.PlayStation || h.Uploads.MaxConcurrent != 2 {
		t.Errorf("health = %+v", h)
	}
	if rec.Header().Get("Content-Security-Policy") == "" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestListProfiles(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))

	profiles := decode[[]ProfileResponse](t, rec)
	if len(profiles) == 0 || profiles[0].Name != profile.PlayStation || !profiles[0].Default {
		t.Fatalf("profiles = %+v", profiles)
	}
	if got := len(profiles[0].Sheets); got != 11 {
		t.Errorf("sheets = %d, want 11", got)
	}
	first := profiles[0].Sheets[0]
	if first.DisplayName == first.Name {
		t.Errorf("DisplayName %q should strip quotes from %q", first.DisplayName, first.Name)
	}
}

func TestProfileTemplate(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles/playstation/template", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "playstation_template.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	// The template itself must upload as a recognisable export.
	rec = serve(s, multipartRequest(t, "/api/parse", rec.Body.Bytes(), nil))
	out := decode[ParseResponse](t, rec)
	if len(out.ParsingErrors.SheetsNotFound) != 0 {
		t.Errorf("SheetsNotFound = %q, want none", out.ParsingErrors.SheetsNotFound)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles/xbox/template", nil))
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "PRF001" {
		t.Errorf("unknown profile = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ReviewAndDonate(t *testing.T) {
	s, store := newTestServer(t, testConfig())

	rec := serve(s, multipartRequest(t, "/api/parse", devicesWorkbook(t), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("parse status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	parsed := decode[struct {
		Valid     bool                       `json:"valid"`
		SessionID string                     `json:"sessionId"`
		Data      map[string]json.RawMessage `json:"data"`
	}](t, rec)
	if !parsed.Valid || parsed.SessionID == "" {
		t.Fatalf("parse response = %+v", parsed)
	}
	if _, ok := parsed.Data[accountDevice]; !ok {
		t.Errorf("data keys = %v, want %s", parsed.Data, accountDevice)
	}

	base := "/api/sessions/" + parsed.SessionID
	rec = serve(s, httptest.NewRequest(http.MethodGet, base, nil))
	sess := decode[SessionResponse](t, rec)
	if len(sess.Sheets) != 1 || len(sess.Sheets[0].Rows) != 2 {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Sheets[0].Rows[0].ID != 1 || !sess.Sheets[0].Rows[1].Selected {
		t.Errorf("rows = %+v, want ids from 1, all selected", sess.Sheets[0].Rows)
	}

	rec = serve(s, jsonRequest(t, http.MethodPut, base+"/selection", SelectionRequest{Sheet: accountDevice, IDs: []int{1}}))
	sheet := decode[SheetResponse](t, rec)
	if !sheet.Rows[0].Selected || sheet.Rows[1].Selected {
		t.Errorf("selection = %+v, want only row 1", sheet.Rows)
	}

	rec = serve(s, jsonRequest(t, http.MethodPost, base+"/delete", DeleteRequest{Sheet: accountDevice}))
	sheet = decode[SheetResponse](t, rec)
	if len(sheet.Rows) != 1 || sheet.Deleted != 1 || sheet.Rows[0].ID != 2 {
		t.Errorf("after delete = %+v", sheet)
	}

	rec = serve(s, httptest.NewRequest(http.MethodPost, base+"/donate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("donate status = %d: %s", rec.Code, rec.Body.String())
	}
	subID := rec.Header().Get("X-Submission-Id")
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "playstation-data-donation-"+subID+".json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	pkg := decode[struct {
		Data             map[string][]map[string]any `json:"data"`
		DeletedRowCounts map[string]int              `json:"deletedRowCounts"`
	}](t, rec)
	if len(pkg.Data["Account Device"]) != 1 || pkg.DeletedRowCounts["Account Device"] != 1 {
		t.Errorf("package = %+v", pkg)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, base, nil))
	if rec.Code != http.StatusNotFound || decode[ErrorResponse](t, rec).Code != "SES001" {
		t.Errorf("closed session = %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/donations/"+subID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), subID) {
		t.Errorf("archived download = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ParseInvalid(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	data := xlsx(t, `"Transaction Detail"`, [][]any{{"Nothing", "useful", "here"}})

	rec := serve(s, multipartRequest(t, "/api/parse", data, map[string]string{"profile": profile.PlayStation}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	out := decode[ParseResponse](t, rec)
	if out.Valid || out.SessionID != "" || out.Reason == "" {
		t.Errorf("response = %+v", out)
	}
	tnp := out.ParsingErrors.TablesNotParsed
	if len(tnp) != 1 || tnp[0].Reason != extract.ReasonHeaderNotFound || len(tnp[0].ExpectedColumns) == 0 {
		t.Errorf("tablesNotParsed = %+v", tnp)
	}
}

func TestAPI_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 4096
	s, _ := newTestServer(t, cfg)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"no file", multipartRequest(t, "/api/parse", nil, nil), http.StatusBadRequest, "FILE004"},
		{"corrupt", multipartRequest(t, "/api/parse", []byte("not a workbook"), nil), http.StatusBadRequest, "FILE002"},
		{"too large", multipartRequest(t, "/api/parse", bytes.Repeat([]byte("x"), 8192), nil), http.StatusRequestEntityTooLarge, "FILE001"},
		{"unknown profile", multipartRequest(t, "/api/parse", []byte("x"), map[string]string{"profile": "xbox"}), http.StatusBadRequest, "PRF001"},
		{"unknown session", httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil), http.StatusNotFound, "SES001"},
		{"decline unknown", httptest.NewRequest(http.MethodDelete, "/api/sessions/nope", nil), http.StatusNotFound, "SES001"},
		{"missing donation", httptest.NewRequest(http.MethodGet, "/api/donations/123", nil), http.StatusNotFound, "DON002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decode[ErrorResponse](t, rec).Code; got != tt.wantErr {
				t.Errorf("code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestAPI_SessionErrors(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, multipartRequest(t, "/api/parse", devicesWorkbook(t), nil))
	id := decode[ParseResponse](t, rec).SessionID
	base := "/api/sessions/" + id

	rec = serve(s, jsonRequest(t, http.MethodPut, base+"/selection", SelectionRequest{Sheet: "Nope", IDs: []int{1}}))
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "SES002" {
		t.Errorf("unknown sheet = %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPut, base+"/selection", strings.NewReader(`{"sheet":`))
	rec = serve(s, req)
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "REQ001" {
		t.Errorf("bad body = %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(s, httptest.NewRequest(http.MethodDelete, base, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("decline status = %d, want 204", rec.Code)
	}
}

func TestPages_DonationFlow(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/upload"`) {
		t.Fatalf("consent = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/upload", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("upload without consent = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/upload?agree=yes", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `type="file"`) {
		t.Errorf("upload page = %d", rec.Code)
	}

	rec = serve(s, multipartRequest(t, "/upload", devicesWorkbook(t), nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload submit = %d: %s", rec.Code, rec.Body.String())
	}
	reviewURL := rec.Header().Get("Location")
	if !strings.HasPrefix(reviewURL, "/review/") {
		t.Fatalf("Location = %q", reviewURL)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, reviewURL, nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Account Device") || !strings.Contains(body, "My console") {
		t.Fatalf("review page = %d", rec.Code)
	}

	form := url.Values{"sheet": {accountDevice}, "row": {"1"}, "action": {"delete"}}
	req := httptest.NewRequest(http.MethodPost, reviewURL+"/rows", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(s, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != reviewURL+"#sheet-1" {
		t.Errorf("rows action = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, reviewURL, nil))
	if strings.Contains(rec.Body.String(), "My console") || !strings.Contains(rec.Body.String(), "Deleted rows: 1") {
		t.Error("deleted row still shown")
	}

	rec = serve(s, httptest.NewRequest(http.MethodPost, reviewURL+"/donate", nil))
	loc := rec.Header().Get("Location")
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(loc, "/thank-you?submission=") {
		t.Fatalf("donate = %d %q", rec.Code, loc)
	}
	subID := strings.TrimPrefix(loc, "/thank-you?submission=")

	rec = serve(s, httptest.NewRequest(http.MethodGet, loc, nil))
	body = rec.Body.String()
	if !strings.Contains(body, subID) || !strings.Contains(body, `href="/donations/`+subID+`"`) {
		t.Errorf("thank-you page missing id or download link")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/donations/"+subID, nil))
	raw, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !json.Valid(raw) {
		t.Errorf("download = %d", rec.Code)
	}
}

func TestPages_InvalidUploadAndDecline(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	data := xlsx(t, `"Transaction Detail"`, [][]any{{"Nothing", "useful", "here"}})
	rec := serve(s, multipartRequest(t, "/upload", data, nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Transaction Detail") || !strings.Contains(body, extract.ReasonHeaderNotFound) {
		t.Errorf("warning page = %d", rec.Code)
	}
	if strings.Contains(body, `&#34;Transaction Detail&#34;`) {
		t.Error("warning page shows raw quoted sheet name")
	}

	rec = serve(s, multipartRequest(t, "/upload", []byte("junk"), nil))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "FILE002") {
		t.Errorf("corrupt upload = %d", rec.Code)
	}

	rec = serve(s, multipartRequest(t, "/upload", devicesWorkbook(t), nil))
	reviewURL := rec.Header().Get("Location")
	rec = serve(s, httptest.NewRequest(http.MethodPost, reviewURL+"/decline", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/thank-you" {
		t.Fatalf("decline = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/thank-you", nil))
	if !strings.Contains(rec.Body.String(), templates.DefaultCopy().ThankYou.DeclineMessage) {
		t.Error("decline message missing")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, reviewURL, nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "SES001") {
		t.Errorf("declined session page = %d", rec.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s, _ := newTestServer(t, cfg)

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("with key = %d, want 200", rec.Code)
	}
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("pages behind API key: %d", rec.Code)
	}
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	s, _ := newTestServer(t, cfg)

	serve(s, multipartRequest(t, "/api/parse", devicesWorkbook(t), nil))
	rec := serve(s, multipartRequest(t, "/api/parse", devicesWorkbook(t), nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second upload = %d, want 429", rec.Code)
	}
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("health after upload limit = %d, want 200", rec.Code)
	}
}
