// Package config loads the donation server's settings from environment
// variables. Every field has a default, so an empty environment yields a
// working in-memory server; Load validates the result before returning.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/datadonation/internal/extract"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Session  SessionConfig
	Archive  ArchiveConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Parse    ParseConfig
	UI       UIConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight uploads.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional donation archive connection.
// When URL is empty donations are kept in memory only.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database URL is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds workbook upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted workbook size in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of workbooks decoded at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long an upload waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single decode and parse (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// SessionConfig holds review session settings.
type SessionConfig struct {
	// TTL is how long a parsed upload stays reviewable (default: 30m)
	TTL time.Duration `env:"SESSION_TTL" default:"30m"`
}

// ArchiveConfig holds donation archive maintenance settings.
type ArchiveConfig struct {
	// Retention is how long archived donations are kept. Zero keeps them
	// forever in PostgreSQL and for one session TTL in memory (default: 0)
	Retention time.Duration `env:"ARCHIVE_RETENTION" default:"0"`

	// CheckInterval is how often expired sessions and donations are
	// purged (default: 1m)
	CheckInterval time.Duration `env:"ARCHIVE_CHECK_INTERVAL" default:"1m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every route (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit applies to the parse endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the JSON API with X-API-Key.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ParseConfig selects the export profile and tunes header detection.
type ParseConfig struct {
	// Profile names a built-in profile (default: playstation)
	Profile string `env:"PARSE_PROFILE" default:"playstation"`

	// ProfileFile loads a YAML profile instead of a built-in one.
	ProfileFile string `env:"PARSE_PROFILE_FILE"`

	TargetedMatchRatio float64  `env:"PARSE_TARGETED_MATCH_RATIO" default:"0.5"`
	MinHeaderCells     int      `env:"PARSE_MIN_HEADER_CELLS" default:"2"`
	HeaderShortRatio   float64  `env:"PARSE_HEADER_SHORT_RATIO" default:"0.7"`
	MaxHeaderLength    int      `env:"PARSE_MAX_HEADER_LENGTH" default:"50"`
	BoilerplatePhrases []string `env:"PARSE_BOILERPLATE_PHRASES" default:"If data is found,the below table shows"`
	LookaheadRows      int      `env:"PARSE_LOOKAHEAD_ROWS" default:"10"`
	MinDataCells       int      `env:"PARSE_MIN_DATA_CELLS" default:"2"`
	ClassifierScanRows int      `env:"PARSE_CLASSIFIER_SCAN_ROWS" default:"20"`
}

// UIConfig holds page settings.
type UIConfig struct {
	// CopyFile is a YAML file overriding the built-in page text.
	CopyFile string `env:"UI_COPY_FILE"`
}

// Params converts the thresholds for the extractor.
func (c ParseConfig) Params() extract.Params {
	phrases := make([]string, len(c.BoilerplatePhrases))
	copy(phrases, c.BoilerplatePhrases)

	return extract.Params{
		TargetedMatchRatio: c.TargetedMatchRatio,
		MinHeaderCells:     c.MinHeaderCells,
		HeaderShortRatio:   c.HeaderShortRatio,
		MaxHeaderLength:    c.MaxHeaderLength,
		BoilerplatePhrases: phrases,
		LookaheadRows:      c.LookaheadRows,
		MinDataCells:       c.MinDataCells,
		ClassifierScanRows: c.ClassifierScanRows,
	}
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
