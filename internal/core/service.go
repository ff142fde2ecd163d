package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/logging"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
	"github.com/JonMunkholm/datadonation/internal/validate"
	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// DefaultMaxFileSize is the upload limit when none is configured (100MB).
const DefaultMaxFileSize int64 = 100 << 20

var (
	// ErrFileTooLarge is returned for uploads over the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoFile is returned when a request carries no file.
	ErrNoFile = errors.New("no file provided")
	// ErrDonationStorage wraps failures to archive a donation.
	ErrDonationStorage = errors.New("donation storage failed")
)

// Options configures a Service.
type Options struct {
	// Profile is used when an upload does not name one.
	Profile profile.Profile
	// Params are the parser thresholds for profiles without their own.
	Params extract.Params
	Decode workbook.DecodeOptions

	MaxFileSize int64
	Limiter     *UploadLimiter
	Sessions    *review.Store

	// Donations archives accepted packages. Nil disables archiving.
	Donations donation.Store

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service runs the upload → review → donate flow. It holds no per-request
// state outside the session store and is safe for concurrent use.
type Service struct {
	profile     profile.Profile
	params      extract.Params
	decode      workbook.DecodeOptions
	maxFileSize int64
	limiter     *UploadLimiter
	sessions    *review.Store
	donations   donation.Store
	now         func() time.Time
	newID       func() string
}

// NewService validates opts and fills defaults.
func NewService(opts Options) (*Service, error) {
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("parser params: %w", err)
	}

	s := &Service{
		profile:     opts.Profile,
		params:      opts.Params,
		decode:      opts.Decode,
		maxFileSize: opts.MaxFileSize,
		limiter:     opts.Limiter,
		sessions:    opts.Sessions,
		donations:   opts.Donations,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.limiter == nil {
		s.limiter = NewUploadLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime)
	}
	if s.sessions == nil {
		s.sessions = review.NewStore(review.DefaultTTL)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = donation.NewSubmissionID
	}
	return s, nil
}

// Profile returns the default profile.
func (s *Service) Profile() profile.Profile { return s.profile }

// Limiter returns the upload limiter, for status reporting and drain.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

// ResolveProfile returns the named profile, or the default for "".
func (s *Service) ResolveProfile(name string) (profile.Profile, error) {
	if name == "" || name == s.profile.Name {
		return s.profile, nil
	}
	return profile.Get(name)
}

// UploadResult is the outcome of an upload.
type UploadResult struct {
	Profile profile.Profile
	Result  *extract.Result
	Verdict validate.Verdict
	// Session is set only when the verdict is valid.
	Session *review.Session
}

// Upload decodes, parses and validates a workbook. A valid result opens a
// review session. An invalid result is not an error; the caller shows the
// parsing errors and lets the user try another file.
func (s *Service) Upload(ctx context.Context, profileName, fileName string, r io.Reader) (*UploadResult, error) {
	prof, err := s.ResolveProfile(profileName)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx, "profile", prof.Name, "file", fileName)

	if !s.limiter.TryAcquire() {
		logger.Info("upload waiting for a free slot", "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			logger.Warn("upload rejected", "error", err)
			return nil, err
		}
	}
	defer s.limiter.Release()

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := workbook.Decode(fileName, bytes.NewReader(data), s.decode)
	if err != nil {
		logger.Warn("workbook rejected", "error", err)
		return nil, err
	}

	res := prof.Parser(s.params, logger).Parse(wb)

	validator, err := prof.ValidatorFunc()
	if err != nil {
		return nil, err
	}
	out := &UploadResult{Profile: prof, Result: res, Verdict: validator(res)}

	logger.Info("workbook parsed",
		"valid", out.Verdict.Valid,
		"records", res.Data.TotalRecords(),
		"sheets_not_found", len(res.ParsingErrors.SheetsNotFound),
		"tables_not_parsed", len(res.ParsingErrors.TablesNotParsed),
	)

	if out.Verdict.Valid {
		out.Session = s.sessions.Create(prof.Name, fileName, res)
	}
	return out, nil
}

// Session returns a live review session.
func (s *Service) Session(id string) (*review.Session, error) {
	return s.sessions.Get(id)
}

// Donation is an accepted donation ready for download.
type Donation struct {
	ID       string
	FileName string
	Package  *donation.Package
	Body     []byte
}

// Donate builds the donation package for a session, archives it when a
// store is configured and closes the session.
func (s *Service) Donate(ctx context.Context, sessionID string) (*Donation, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	now := s.now()
	pkg := donation.Build(sess, id, now)
	body, err := pkg.Encode()
	if err != nil {
		return nil, err
	}

	d := &Donation{
		ID:       id,
		FileName: donation.FileName(sess.Profile, id),
		Package:  pkg,
		Body:     body,
	}

	logger := logging.WithFields(ctx,
		"session_id", sess.ID,
		"submission_id", id,
		"ip", GetIPAddressFromContext(ctx),
	)

	if s.donations != nil {
		sub := donation.Submission{
			ID:        id,
			Profile:   sess.Profile,
			FileName:  sess.FileName,
			CreatedAt: now,
			Metadata:  pkg.Metadata,
			Body:      body,
		}
		if err := s.donations.Save(ctx, sub); err != nil {
			logger.Error("archive donation", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrDonationStorage, err)
		}
	}

	s.sessions.Delete(sess.ID)
	logger.Info("donation accepted",
		slog.Int("remaining_rows", pkg.Metadata.TotalRemainingRows),
		slog.Int("deleted_rows", pkg.Metadata.TotalDeletedRows),
	)
	return d, nil
}

// Decline discards a session without producing a package.
func (s *Service) Decline(ctx context.Context, sessionID string) error {
	if !s.sessions.Delete(sessionID) {
		return review.ErrSessionNotFound
	}
	logging.FromContext(ctx).Info("donation declined", "session_id", sessionID)
	return nil
}

// Submission returns an archived donation. It reports donation.ErrNotFound
// when archiving is disabled.
func (s *Service) Submission(ctx context.Context, id string) (donation.Submission, error) {
	if s.donations == nil {
		return donation.Submission{}, donation.ErrNotFound
	}
	return s.donations.Get(ctx, id)
}

// OpenSessions returns the number of live review sessions.
func (s *Service) OpenSessions() int {
	return s.sessions.Len()
}
