package web

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/logging"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.Consent(templates.ConsentParams{
		Copy:    s.copy,
		Profile: r.URL.Query().Get("profile"),
	}))
}

// handleUploadPage shows the file picker once consent was given.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("agree") != "yes" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, templates.Upload(templates.UploadParams{
		Copy:        s.copy,
		Profile:     q.Get("profile"),
		MaxFileSize: s.service.MaxFileSize(),
	}))
}

// handleUploadSubmit parses the workbook. A valid result redirects to the
// review page; an invalid one renders the warning with a retry link.
func (s *Server) handleUploadSubmit(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.renderUploadError(w, r, r.FormValue("profile"), err)
		return
	}
	defer up.File.Close()

	res, err := s.upload(r.Context(), up)
	if err != nil {
		s.renderUploadError(w, r, up.Profile, err)
		return
	}
	if res.Session == nil {
		s.render(w, r, http.StatusOK, templates.Warning(s.warningParams(res, up.Name)))
		return
	}
	http.Redirect(w, r, "/review/"+url.PathEscape(res.Session.ID), http.StatusSeeOther)
}

// renderUploadError shows the upload form again with the coded error.
func (s *Server) renderUploadError(w http.ResponseWriter, r *http.Request, profileName string, err error) {
	status := statusFor(err)
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("upload rejected",
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	s.render(w, r, status, templates.Upload(templates.UploadParams{
		Copy:        s.copy,
		Profile:     profileName,
		MaxFileSize: s.service.MaxFileSize(),
		Error:       &templates.ErrorParams{Message: msg.Message, Action: msg.Action, Code: msg.Code},
	}))
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, templates.Review(s.reviewParams(sess)))
}

// handleReviewRows applies one form action to a sheet. The checked boxes
// are the selection; "delete" removes them.
func (s *Server) handleReviewRows(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.service.Session(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errors.Join(errBadRequest, err))
		return
	}

	sheet := r.PostForm.Get("sheet")
	ids, err := parseIDs(r.PostForm["row"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch r.PostForm.Get("action") {
	case "all":
		err = sess.SelectAll(sheet, true)
	case "none":
		err = sess.SelectAll(sheet, false)
	case "delete":
		var removed int
		if _, err = sess.SetSelection(sheet, ids); err == nil {
			removed, err = sess.DeleteSelected(sheet)
		}
		if err == nil {
			logging.FromContext(r.Context()).Info("rows deleted",
				"session_id", id,
				"sheet", sheet,
				"rows", removed,
			)
		}
	default:
		_, err = sess.SetSelection(sheet, ids)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	target := "/review/" + url.PathEscape(id)
	for i, v := range sess.Sheets() {
		if v.Name == sheet {
			target += "#" + sheetAnchor(i)
			break
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func parseIDs(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Join(errBadRequest, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) handleDonatePage(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Donate(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/thank-you?"+url.Values{"submission": {d.ID}}.Encode(), http.StatusSeeOther)
}

func (s *Server) handleDeclinePage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Decline(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/thank-you", http.StatusSeeOther)
}

// handleThankYou confirms a donation, with a download link while the
// archived copy is available, or a decline.
func (s *Server) handleThankYou(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("submission")
	p := templates.ThankYouParams{Copy: s.copy, Donated: id != "", SubmissionID: id}
	if id != "" {
		if _, err := s.submission(r, id); err == nil {
			p.DownloadURL = "/donations/" + url.PathEscape(id)
		}
	}
	s.render(w, r, http.StatusOK, templates.ThankYou(p))
}

// handleDownloadSubmission serves an archived donation as a file.
func (s *Server) handleDownloadSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submission(r, chi.URLParam(r, "submissionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, donation.FileName(sub.Profile, sub.ID), sub.Body)
}

// submission returns an archived donation that is still inside the
// download window (the session TTL).
func (s *Server) submission(r *http.Request, id string) (donation.Submission, error) {
	sub, err := s.service.Submission(r.Context(), id)
	if err != nil {
		return donation.Submission{}, err
	}
	if window := s.cfg.Session.TTL; window > 0 && time.Since(sub.CreatedAt) > window {
		return donation.Submission{}, donation.ErrNotFound
	}
	return sub, nil
}

func writeAttachment(w http.ResponseWriter, name string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
