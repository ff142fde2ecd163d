package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/datadonation/internal/config"
	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/logging"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
	"github.com/JonMunkholm/datadonation/internal/web"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/JonMunkholm/datadonation/internal/workbook"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"profile", cfg.Parse.Profile,
		"database", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"session_ttl", cfg.Session.TTL,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	prof, err := loadProfile(cfg.Parse)
	if err != nil {
		slog.Error("failed to load profile", "error", err)
		os.Exit(1)
	}

	pageCopy := templates.DefaultCopy()
	if cfg.UI.CopyFile != "" {
		if pageCopy, err = templates.LoadCopy(cfg.UI.CopyFile); err != nil {
			slog.Error("failed to load page copy", "path", cfg.UI.CopyFile, "error", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	var store donation.Store = donation.NewMemoryStore()
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := donation.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create donation table", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		slog.Info("no database configured, donations are kept in memory")
	}

	service, err := core.NewService(core.Options{
		Profile:     prof,
		Params:      cfg.Parse.Params(),
		Decode:      workbook.DefaultDecodeOptions(),
		MaxFileSize: cfg.Upload.MaxFileSize,
		Limiter:     core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Sessions:    review.NewStore(cfg.Session.TTL),
		Donations:   store,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("profile ready",
		"name", prof.Name,
		"sheets", len(prof.Sheets),
		"registered", len(profile.All()),
	)

	server := web.NewServer(service, cfg, pageCopy)

	// In-memory donations only back the download link, so they live as
	// long as a session unless a retention is configured.
	retention := cfg.Archive.Retention
	if retention == 0 && !cfg.Database.Enabled() {
		retention = cfg.Session.TTL
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartMaintenance(jobCtx, core.MaintenanceConfig{
		Retention:     retention,
		CheckInterval: cfg.Archive.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// loadProfile reads PARSE_PROFILE_FILE when set and falls back to the
// built-in registry.
func loadProfile(pc config.ParseConfig) (profile.Profile, error) {
	if pc.ProfileFile != "" {
		p, err := profile.LoadFile(pc.ProfileFile)
		if err != nil {
			return profile.Profile{}, err
		}
		// A file may override a built-in profile of the same name; only
		// new names join the registry.
		if _, err := profile.Get(p.Name); err != nil {
			profile.Register(p)
		}
		slog.Info("profile loaded from file", "path", pc.ProfileFile, "name", p.Name)
		return p, nil
	}
	return profile.Get(pc.Profile)
}

func connect(ctx context.Context, dc config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dc.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(dc.MaxConns)
	poolConfig.MinConns = int32(dc.MinConns)
	poolConfig.MaxConnLifetime = dc.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dc.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(dc.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
