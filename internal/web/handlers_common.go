package web

// Shared helpers: reading uploads, rendering components and converting
// service types into page and API views.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/a-h/templ"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// multipartOverhead allows for boundaries and form fields on top of the
// workbook itself.
const multipartOverhead = 1 << 20

// render writes a templ component with the given status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// uploadedFile is the workbook part of a multipart request.
type uploadedFile struct {
	Profile string
	Name    string
	File    multipart.File
}

// readUpload parses a multipart upload with the "file" part and an
// optional "profile" field. The caller closes File.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxFileSize()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	return &uploadedFile{
		Profile: r.FormValue("profile"),
		Name:    header.Filename,
		File:    file,
	}, nil
}

// upload runs an uploaded workbook through the service under the upload
// timeout.
func (s *Server) upload(ctx context.Context, up *uploadedFile) (*core.UploadResult, error) {
	if t := s.cfg.Upload.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return s.service.Upload(ctx, up.Profile, up.Name, up.File)
}

// decodeJSON reads a small JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sheetIssues converts table errors to display names.
func sheetIssues(errs []extract.TableError) []templates.SheetIssue {
	out := make([]templates.SheetIssue, len(errs))
	for i, te := range errs {
		out[i] = templates.SheetIssue{
			Sheet:           profile.DisplayName(te.SheetName),
			Reason:          te.Reason,
			ExpectedColumns: te.ExpectedColumns,
		}
	}
	return out
}

func displayNames(sheets []string) []string {
	out := make([]string, len(sheets))
	for i, s := range sheets {
		out[i] = profile.DisplayName(s)
	}
	return out
}

// warningParams describes a rejected upload.
func (s *Server) warningParams(res *core.UploadResult, fileName string) templates.WarningParams {
	return templates.WarningParams{
		Copy:            s.copy,
		Profile:         res.Profile.Name,
		FileName:        fileName,
		Reason:          res.Verdict.Reason,
		SheetsNotFound:  displayNames(res.Result.ParsingErrors.SheetsNotFound),
		TablesNotParsed: sheetIssues(res.Result.ParsingErrors.TablesNotParsed),
	}
}

// reviewParams describes a review session.
func (s *Server) reviewParams(sess *review.Session) templates.ReviewParams {
	views := sess.Sheets()
	sheets := make([]templates.SheetTable, len(views))
	for i, v := range views {
		rows := make([]templates.RowView, len(v.Rows))
		for j, row := range v.Rows {
			values := make([]string, len(v.Columns))
			for k, col := range v.Columns {
				values[k] = row.Value(col)
			}
			rows[j] = templates.RowView{ID: row.ID, Selected: row.Selected(), Values: values}
		}
		sheets[i] = templates.SheetTable{
			Anchor:      sheetAnchor(i),
			Name:        v.Name,
			DisplayName: v.DisplayName,
			Columns:     v.Columns,
			Rows:        rows,
			Deleted:     v.Deleted,
		}
	}

	errs := sess.ParsingErrors()
	return templates.ReviewParams{
		Copy:            s.copy,
		SessionID:       sess.ID,
		FileName:        sess.FileName,
		ExpiresAt:       sess.ExpiresAt,
		Sheets:          sheets,
		SheetsNotFound:  displayNames(errs.SheetsNotFound),
		TablesNotParsed: sheetIssues(errs.TablesNotParsed),
	}
}

func sheetAnchor(i int) string {
	return "sheet-" + strconv.Itoa(i+1)
}

// SheetResponse is one sheet of a session in API responses.
type SheetResponse struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"displayName"`
	Columns     []string      `json:"columns"`
	Rows        []RowResponse `json:"rows"`
	Deleted     int           `json:"deleted"`
}

// RowResponse is one reviewable row. Values keep column order.
type RowResponse struct {
	ID       int             `json:"id"`
	Selected bool            `json:"selected"`
	Values   json.RawMessage `json:"values"`
}

// SessionResponse is the API view of a review session.
type SessionResponse struct {
	ID            string                     `json:"id"`
	Profile       string                     `json:"profile"`
	FileName      string                     `json:"fileName"`
	ExpiresAt     time.Time                  `json:"expiresAt"`
	Sheets        []SheetResponse            `json:"sheets"`
	DeletedCounts map[string]int             `json:"deletedRowCounts"`
	ParsingErrors extract.ParsingErrorReport `json:"parsingErrors"`
}

func sheetResponse(v review.SheetView) (SheetResponse, error) {
	out := SheetResponse{
		Name:        v.Name,
		DisplayName: v.DisplayName,
		Columns:     v.Columns,
		Rows:        make([]RowResponse, len(v.Rows)),
		Deleted:     v.Deleted,
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, row := range v.Rows {
		values, err := row.Record.MarshalValues()
		if err != nil {
			return SheetResponse{}, err
		}
		out.Rows[i] = RowResponse{ID: row.ID, Selected: row.Selected(), Values: values}
	}
	return out, nil
}

func sessionResponse(sess *review.Session) (SessionResponse, error) {
	out := SessionResponse{
		ID:            sess.ID,
		Profile:       sess.Profile,
		FileName:      sess.FileName,
		ExpiresAt:     sess.ExpiresAt,
		DeletedCounts: map[string]int{},
		ParsingErrors: sess.ParsingErrors(),
	}
	for _, v := range sess.Sheets() {
		sr, err := sheetResponse(v)
		if err != nil {
			return SessionResponse{}, err
		}
		out.Sheets = append(out.Sheets, sr)
		out.DeletedCounts[v.DisplayName] = v.Deleted
	}
	if out.Sheets == nil {
		out.Sheets = []SheetResponse{}
	}
	return out, nil
}
