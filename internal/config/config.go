// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"zbx-import/internal/domain"
)

// Import backends.
const (
	BackendSQLite = "sqlite"
	BackendZabbix = "zabbix"
)

const devJWTSecret = "dev-secret-change-in-production"

// ZabbixConfig holds the connection settings of a Zabbix frontend API.
type ZabbixConfig struct {
	URL     string        // JSON-RPC endpoint, e.g. https://zabbix.example.com/api_jsonrpc.php
	Token   string        // API token sent as a bearer token
	RPS     float64       // client-side request rate limit (default 10)
	Timeout time.Duration // per-request timeout (default 30s)

	// TemplateGroups resolves groups as template groups (Zabbix 6.2+).
	TemplateGroups bool
}

// SyncConfig configures the scheduled re-import of a template document.
type SyncConfig struct {
	File     string // document to import; empty disables scheduled sync
	Schedule string // cron expression (default "@hourly")
}

// Enabled reports whether scheduled sync is configured.
func (s SyncConfig) Enabled() bool {
	return s.File != ""
}

// Config holds the configuration of the import service and CLI.
type Config struct {
	MetaDBPath string // path to the SQLite template store
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"
	Backend    string // import backend: "sqlite" (default) or "zabbix"

	Zabbix ZabbixConfig

	// DefaultOptions apply to documents that declare no import rules.
	DefaultOptions domain.ImportOptions

	// HTTP service auth, HS256 bearer tokens.
	JWTSecret string
	JWTIssuer string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 5)
	RateLimitBurst int     // burst capacity (default 10)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Sync SyncConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to an slog.Level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	return LoadFromEnvWith(nil)
}

// LoadFromEnvWith loads configuration from environment variables, applies
// override (when non-nil) on top of the defaults and then validates the
// result. Command-line flags use it to take precedence over the environment.
func LoadFromEnvWith(override func(*Config)) (*Config, error) {
	cfg := &Config{
		MetaDBPath: os.Getenv("META_DB_PATH"),
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
		Backend:    strings.ToLower(strings.TrimSpace(os.Getenv("IMPORT_BACKEND"))),
		Zabbix: ZabbixConfig{
			URL:            os.Getenv("ZABBIX_URL"),
			Token:          os.Getenv("ZABBIX_API_TOKEN"),
			TemplateGroups: parseBoolEnvDefault("ZABBIX_TEMPLATE_GROUPS", false),
		},
		DefaultOptions: domain.ImportOptions{
			CreateMissingTemplates:  parseBoolEnvDefault("IMPORT_CREATE_MISSING", true),
			UpdateExistingTemplates: parseBoolEnvDefault("IMPORT_UPDATE_EXISTING", false),
			CreateMissingLinkage:    parseBoolEnvDefault("IMPORT_LINK_TEMPLATES", true),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: os.Getenv("JWT_ISSUER"),
		Sync: SyncConfig{
			File:     os.Getenv("SYNC_FILE"),
			Schedule: os.Getenv("SYNC_SCHEDULE"),
		},
	}

	if v := os.Getenv("ZABBIX_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("ZABBIX_RPS must be a positive number, got %q", v)
		}
		cfg.Zabbix.RPS = f
	}
	if v := os.Getenv("ZABBIX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ZABBIX_TIMEOUT: %w", err)
		}
		cfg.Zabbix.Timeout = d
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "zbx_import.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.Zabbix.RPS == 0 {
		cfg.Zabbix.RPS = 10
	}
	if cfg.Zabbix.Timeout == 0 {
		cfg.Zabbix.Timeout = 30 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Sync.Enabled() && cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = "@hourly"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure default. Set JWT_SECRET in production!")
	}

	if override != nil {
		override(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendZabbix:
		if c.Zabbix.URL == "" {
			return fmt.Errorf("ZABBIX_URL is required when IMPORT_BACKEND=zabbix")
		}
		if c.Zabbix.Token == "" {
			if c.IsProduction() {
				return fmt.Errorf("ZABBIX_API_TOKEN must be set in production (ENV=production)")
			}
			c.Warnings = append(c.Warnings, "ZABBIX_API_TOKEN not set, Zabbix calls will be unauthenticated")
		}
	default:
		return fmt.Errorf("unsupported IMPORT_BACKEND %q (expected %q or %q)", c.Backend, BackendSQLite, BackendZabbix)
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}
	return nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
