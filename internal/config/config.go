// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jeranaias/chatdeck/internal/util"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CHATDECK_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatdeck configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Client   ClientConfig   `toml:"client" envPrefix:"CLIENT_"`
	Provider ProviderConfig `toml:"provider" envPrefix:"PROVIDER_"`
	Auth     AuthConfig     `toml:"auth" envPrefix:"AUTH_"`
	Cache    CacheConfig    `toml:"cache" envPrefix:"CACHE_"`
	UI       UIConfig       `toml:"ui" envPrefix:"UI_"`
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`
}

// ServerConfig configures the persistence API served by `chatdeck serve`.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `toml:"addr" env:"ADDR"`
	// DBDriver is "sqlite" or "postgres"
	DBDriver string `toml:"db_driver" env:"DB_DRIVER"`
	// DBDSN is a file path for sqlite or a connection string for postgres
	DBDSN string `toml:"db_dsn" env:"DB_DSN"`
	// CORSOrigins lists allowed browser origins ("*" allows all)
	CORSOrigins []string `toml:"cors_origins" env:"CORS_ORIGINS"`
	// RateLimit is requests per second allowed per user
	RateLimit float64 `toml:"rate_limit" env:"RATE_LIMIT"`
	// RateBurst is the token bucket size
	RateBurst int `toml:"rate_burst" env:"RATE_BURST"`
	// RequestTimeout bounds each request
	RequestTimeout time.Duration `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// ClientConfig configures how the TUI reaches the persistence API.
type ClientConfig struct {
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	// UserID is sent as x-user-id when no session token is present
	UserID string `toml:"user_id" env:"USER_ID"`
	// Token is a session token obtained with `chatdeck verify`
	Token   string        `toml:"token" env:"TOKEN"`
	Timeout time.Duration `toml:"timeout" env:"TIMEOUT"`
}

// ProviderConfig configures the OpenAI-compatible completion endpoint.
type ProviderConfig struct {
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	APIKey  string `toml:"api_key" env:"API_KEY"`
	// UpstreamModel overrides the model name sent upstream. Empty sends the
	// registry id as-is.
	UpstreamModel string `toml:"upstream_model" env:"UPSTREAM_MODEL"`
	// MaxSteps caps tool-call round trips per response
	MaxSteps     int    `toml:"max_steps" env:"MAX_STEPS"`
	SystemPrompt string `toml:"system_prompt" env:"SYSTEM_PROMPT"`
	// Tools enables tool calling
	Tools bool `toml:"tools" env:"TOOLS"`
}

// AuthConfig configures session tokens and admin access.
type AuthConfig struct {
	JWTSecret  string        `toml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL time.Duration `toml:"session_ttl" env:"SESSION_TTL"`
	// LinkTTL is how long a magic-link token stays valid
	LinkTTL  time.Duration `toml:"link_ttl" env:"LINK_TTL"`
	AdminIDs []string      `toml:"admin_ids" env:"ADMIN_IDS"`
}

// CacheConfig configures the client-side transcript cache.
type CacheConfig struct {
	// StaleAfter is the staleness window after which a background refresh runs
	StaleAfter time.Duration `toml:"stale_after" env:"STALE_AFTER"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme    string `toml:"theme" env:"THEME"`
	WordWrap int    `toml:"word_wrap" env:"WORD_WRAP"`
	// DefaultModel is the registry id selected on startup
	DefaultModel string `toml:"default_model" env:"DEFAULT_MODEL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Mode  string `toml:"mode" env:"MODE"`
	Level string `toml:"level" env:"LEVEL"`
	// File receives TUI logs. The server logs to stderr.
	File string `toml:"file" env:"FILE"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with built-in defaults.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".chatdeck"
	}
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			DBDriver:       "sqlite",
			DBDSN:          filepath.Join(dir, "chatdeck.db"),
			CORSOrigins:    []string{"http://localhost:3000"},
			RateLimit:      10,
			RateBurst:      20,
			RequestTimeout: 30 * time.Second,
		},
		Client: ClientConfig{
			BaseURL: "http://127.0.0.1:8787/api",
			Timeout: 15 * time.Second,
		},
		Provider: ProviderConfig{
			BaseURL:  "https://api.deepseek.com/v1",
			MaxSteps: 5,
			Tools:    true,
		},
		Auth: AuthConfig{
			SessionTTL: 30 * 24 * time.Hour,
			LinkTTL:    24 * time.Hour,
		},
		Cache: CacheConfig{
			StaleAfter: 5 * time.Minute,
		},
		UI: UIConfig{
			Theme:        "auto",
			WordWrap:     80,
			DefaultModel: "deepseek",
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
			File:  filepath.Join(dir, "chatdeck.log"),
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.chatdeck.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chatdeck"), nil
}

// ConfigPath returns the TOML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file (if present), .env and the environment.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the TOML file at path on top of defaults. A missing file
// is not an error. Environment overrides and validation always run.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	// .env is optional; a missing file is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies CHATDECK_* variables. When environ is nil the
// process environment is used.
func (c *Config) ApplyEnvOverrides(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Save writes cfg to path as TOML with owner-only permissions.
func Save(cfg *Config, path string) error {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch strings.ToLower(c.Server.DBDriver) {
	case "sqlite", "postgres":
	default:
		errs = append(errs, ValidationError{
			Field:   "server.db_driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: sqlite, postgres", c.Server.DBDriver),
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must be at least 1 when rate_limit is set"})
	}

	if err := validateURL(c.Client.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "client.base_url", Message: err.Error()})
	}
	if c.Provider.BaseURL != "" {
		if err := validateURL(c.Provider.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: "provider.base_url", Message: err.Error()})
		}
	}
	if c.Provider.MaxSteps < 1 || c.Provider.MaxSteps > 20 {
		errs = append(errs, ValidationError{Field: "provider.max_steps", Message: "must be between 1 and 20"})
	}

	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, ValidationError{Field: "auth.session_ttl", Message: "must be positive"})
	}
	if c.Auth.LinkTTL <= 0 {
		errs = append(errs, ValidationError{Field: "auth.link_ttl", Message: "must be positive"})
	}
	if c.Cache.StaleAfter <= 0 {
		errs = append(errs, ValidationError{Field: "cache.stale_after", Message: "must be positive"})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be at least 20"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c *Config) IsAdmin(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range c.Auth.AdminIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration, loading it on first access.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
