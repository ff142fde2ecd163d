package web

import (
	"mime"
	"net/http"
	"time"

	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProfileSheet describes one configured sheet.
type ProfileSheet struct {
	Name            string       `json:"name"`
	DisplayName     string       `json:"displayName"`
	Mode            extract.Mode `json:"mode"`
	ExpectedColumns []string     `json:"expectedColumns,omitempty"`
}

// ProfileResponse describes a profile the server accepts.
type ProfileResponse struct {
	Name    string         `json:"name"`
	Title   string         `json:"title"`
	Default bool           `json:"default"`
	Sheets  []ProfileSheet `json:"sheets"`
}

func profileResponse(p profile.Profile, isDefault bool) ProfileResponse {
	out := ProfileResponse{Name: p.Name, Title: p.Title, Default: isDefault}
	for _, spec := range p.Sheets {
		out.Sheets = append(out.Sheets, ProfileSheet{
			Name:            spec.Name,
			DisplayName:     profile.DisplayName(spec.Name),
			Mode:            spec.Mode(),
			ExpectedColumns: spec.ExpectedColumns(),
		})
	}
	return out
}

// handleListProfiles lists the default profile first, then every other
// registered one.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	def := s.service.Profile()
	out := []ProfileResponse{profileResponse(def, true)}
	for _, p := range profile.All() {
		if p.Name != def.Name {
			out = append(out, profileResponse(p, false))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProfileTemplate returns a blank workbook laid out like the
// profile's export.
func (s *Server) handleProfileTemplate(w http.ResponseWriter, r *http.Request) {
	prof, data, err := s.service.Template(chi.URLParam(r, "profile"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	h := w.Header()
	h.Set("Content-Type", xlsxContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": core.TemplateFileName(prof.Name),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ParseResponse is the outcome of POST /api/parse. Each record in Data is
// encoded as {"values": {column: value}, "selected": bool} rather than a
// flat column map, so a column named "selected" survives intact. Donation
// packages carry the flat values only.
type ParseResponse struct {
	Profile       string                     `json:"profile"`
	Valid         bool                       `json:"valid"`
	Reason        string                     `json:"reason,omitempty"`
	Data          *extract.ParsedData        `json:"data"`
	ParsingErrors extract.ParsingErrorReport `json:"parsingErrors"`
	SessionID     string                     `json:"sessionId,omitempty"`
	ExpiresAt     *time.Time                 `json:"expiresAt,omitempty"`
}

// handleParse parses a multipart upload. Invalid results come back with
// 422 and their parsing errors; valid ones open a review session.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer up.File.Close()

	res, err := s.upload(r.Context(), up)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := ParseResponse{
		Profile:       res.Profile.Name,
		Valid:         res.Verdict.Valid,
		Reason:        res.Verdict.Reason,
		Data:          res.Result.Data,
		ParsingErrors: res.Result.ParsingErrors,
	}
	status := http.StatusUnprocessableEntity
	if res.Session != nil {
		status = http.StatusCreated
		out.SessionID = res.Session.ID
		out.ExpiresAt = &res.Session.ExpiresAt
	}
	writeJSON(w, status, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := sessionResponse(sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SelectionRequest replaces the selection of one sheet.
type SelectionRequest struct {
	Sheet string `json:"sheet"`
	IDs   []int  `json:"ids"`
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := sess.SetSelection(req.Sheet, req.IDs); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeSheet(w, r, sess.ID, req.Sheet, http.StatusOK)
}

// DeleteRequest names the sheet whose selected rows are deleted.
type DeleteRequest struct {
	Sheet string `json:"sheet"`
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := sess.DeleteSelected(req.Sheet); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeSheet(w, r, sess.ID, req.Sheet, http.StatusOK)
}

func (s *Server) writeSheet(w http.ResponseWriter, r *http.Request, sessionID, sheet string, status int) {
	sess, err := s.service.Session(sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	v, err := sess.Sheet(sheet)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := sheetResponse(v)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, status, out)
}

// handleDonate returns the donation package as a download and closes the
// session.
func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Donate(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("X-Submission-Id", d.ID)
	writeAttachment(w, d.FileName, d.Body)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Decline(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse reports liveness and load.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Profile  string                   `json:"profile"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Profile:  s.service.Profile().Name,
		Sessions: s.service.OpenSessions(),
		Uploads:  s.service.Limiter().Status(),
	})
}
