// Package web serves the donation flow over HTTP: server-rendered pages for
// participants and a JSON API for scripted clients.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/datadonation/internal/config"
	"github.com/JonMunkholm/datadonation/internal/core"
	mw "github.com/JonMunkholm/datadonation/internal/web/middleware"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the donation flow.
type Server struct {
	service *core.Service
	cfg     *config.Config
	copy    templates.Copy
	router  *chi.Mux
	server  *http.Server

	limiters []*mw.RateLimiter
}

// NewServer builds the router. Page text comes from copy.
func NewServer(service *core.Service, cfg *config.Config, copy templates.Copy) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		copy:    copy,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.ClientMetadata)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// uploadLimit is the stricter budget of the two upload endpoints.
func (s *Server) uploadLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.rateLimit(s.cfg.Rate.UploadLimit)
}

func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.Handler
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleConsent)
	s.router.Get("/upload", s.handleUploadPage)
	s.router.With(s.uploadLimit()).Post("/upload", s.handleUploadSubmit)
	s.router.Get("/thank-you", s.handleThankYou)
	s.router.Get("/donations/{submissionID}", s.handleDownloadSubmission)
	s.router.Route("/review/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleReview)
		r.Post("/rows", s.handleReviewRows)
		r.Post("/donate", s.handleDonatePage)
		r.Post("/decline", s.handleDeclinePage)
	})

	// API
	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/{profile}/template", s.handleProfileTemplate)
		r.With(s.uploadLimit()).Post("/parse", s.handleParse)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/selection", s.handleSetSelection)
			r.Post("/delete", s.handleDeleteSelected)
			r.Post("/donate", s.handleDonate)
			r.Delete("/", s.handleDecline)
		})

		r.Get("/donations/{submissionID}", s.handleDownloadSubmission)
	})
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight uploads and stops
// the rate limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() {
		for _, rl := range s.limiters {
			rl.Stop()
		}
	}()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if drainErr := s.service.Limiter().WaitForDrain(ctx); drainErr != nil && err == nil {
		err = drainErr
	}
	return err
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with the given status. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
