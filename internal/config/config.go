// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and FEST_ environment variables over the defaults.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Override policies.
const (
	PolicyRecomputeWins  = "recompute_wins"
	PolicyOverrideSticky = "override_sticky"
)

// MinSecretLen is the shortest accepted HS256 signing key.
const MinSecretLen = 32

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, postgres or sqlite.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	// DebugSQL prints every SQL statement.
	DebugSQL bool `koanf:"debug_sql"`

	// KnownTeams always appear in totals, with 0 when they have not scored.
	KnownTeams []string `koanf:"known_teams"`
	// StrictTeams rejects results naming unregistered teams.
	StrictTeams bool `koanf:"strict_teams"`
	// OverridePolicy decides whether recomputation replaces manual overrides.
	OverridePolicy string `koanf:"override_policy"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	// BoardPageSize caps the programs shown per display slide.
	BoardPageSize int `koanf:"board_page_size"`

	AdminUsername string `koanf:"admin_username"`
	// AdminPasswordHash is a bcrypt hash; see cmd/hashpass.
	AdminPasswordHash  string        `koanf:"admin_password_hash"`
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	LoginRatePerMinute int           `koanf:"login_rate_per_minute"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		SQLitePath:          "festboard.db",
		OverridePolicy:      PolicyRecomputeWins,
		MaxLeaderboardLimit: 100,
		BoardPageSize:       9,
		AdminUsername:       "admin",
		TokenTTL:            12 * time.Hour,
		LoginRatePerMinute:  10,
	}
}

// AdminEnabled reports whether admin credentials are configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != "" && c.JWTSecret != ""
}

// Validate checks field values and normalises enumerations.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for store %q", ErrInvalidConfig, c.Store)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for store %q", ErrInvalidConfig, c.Store)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	c.OverridePolicy = strings.ToLower(strings.TrimSpace(c.OverridePolicy))
	if c.OverridePolicy != PolicyRecomputeWins && c.OverridePolicy != PolicyOverrideSticky {
		return fmt.Errorf("%w: unknown override_policy %q", ErrInvalidConfig, c.OverridePolicy)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if c.BoardPageSize < 1 {
		return fmt.Errorf("%w: board_page_size must be positive", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	}
	if c.LoginRatePerMinute < 1 {
		return fmt.Errorf("%w: login_rate_per_minute must be positive", ErrInvalidConfig)
	}
	if c.AdminPasswordHash != "" && c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret is required when admin_password_hash is set", ErrInvalidConfig)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < MinSecretLen {
		return fmt.Errorf("%w: %w: need at least %d bytes", ErrInvalidConfig, ErrWeakSecret, MinSecretLen)
	}

	teams := make([]string, 0, len(c.KnownTeams))
	for _, t := range c.KnownTeams {
		if t = strings.TrimSpace(t); t != "" {
			teams = append(teams, t)
		}
	}
	c.KnownTeams = teams
	return nil
}
