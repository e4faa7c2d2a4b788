package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// KnownLocales lists every locale the message catalogs ship with.
var KnownLocales = []string{"ko", "en", "ja"}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	CMS       CMSConfig
	Session   SessionConfig
	I18n      I18nConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Webhook   WebhookConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// CMSConfig controls the upstream headless CMS client.
type CMSConfig struct {
	// URL is the base URL used for REST calls, e.g. "http://strapi:1337".
	URL string

	// PublicURL is prepended to relative media URLs shown to browsers.
	// default: URL
	PublicURL string

	// APIToken is the server-side token used when no user token is attached.
	APIToken string

	// Timeout bounds every CMS request.
	Timeout time.Duration // default: 10s

	// CommentRelationPrefix is joined with a post documentId to address its
	// comment thread in the comments plugin.
	CommentRelationPrefix string // default: "api::post.post:"
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string        // default: "imageboard_session"
	TTL        time.Duration // default: 720h
	Secure     bool          // default: false
}

// I18nConfig controls locale routing and date formatting.
type I18nConfig struct {
	DefaultLocale    string   // default: "ko"
	SupportedLocales []string // default: KnownLocales
	TimeZone         string   // default: "Asia/Seoul"
}

// UploadConfig controls image uploads.
type UploadConfig struct {
	// MaxBytes is the maximum accepted upload size.
	MaxBytes int64 // default: 10 MiB

	// AllowedTypes lists accepted MIME types.
	AllowedTypes []string
}

// RateLimitConfig controls per-user rate limiting of mutations.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per user (or IP when anonymous).
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size.
	Burst int // default: 10
}

// CacheConfig controls the post feed cache.
type CacheConfig struct {
	// TTL is how long a cached feed is served. Zero disables the cache.
	TTL time.Duration // default: 30s

	// MaxEntries is the maximum number of cached feeds.
	MaxEntries int // default: 64
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls the inbound CMS webhook.
type WebhookConfig struct {
	// Secret verifies the webhook signature. Empty disables the endpoint.
	Secret string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool // default: true
}

// Load reads configuration from an optional TOML file (IMAGEBOARD_CONFIG)
// and then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("IMAGEBOARD_CONFIG"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 3000, Mode: "release"},
		CMS: CMSConfig{
			URL:                   "http://127.0.0.1:1337",
			Timeout:               10 * time.Second,
			CommentRelationPrefix: "api::post.post:",
		},
		Session: SessionConfig{
			CookieName: "imageboard_session",
			TTL:        30 * 24 * time.Hour,
		},
		I18n: I18nConfig{
			DefaultLocale:    "ko",
			SupportedLocales: append([]string(nil), KnownLocales...),
			TimeZone:         "Asia/Seoul",
		},
		Upload: UploadConfig{
			MaxBytes:     10 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/avif"},
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 2, Burst: 10},
		Cache:     CacheConfig{TTL: 30 * time.Second, MaxEntries: 64},
		Log:       LogConfig{Level: "info", Format: "json"},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = envOr("IMAGEBOARD_HOST", cfg.Server.Host)
	cfg.Server.Port = envIntOr("IMAGEBOARD_PORT", cfg.Server.Port)
	cfg.Server.Mode = envOr("IMAGEBOARD_MODE", cfg.Server.Mode)

	cfg.CMS.URL = envOr("STRAPI_URL", cfg.CMS.URL)
	cfg.CMS.PublicURL = envOr("STRAPI_PUBLIC_URL", cfg.CMS.PublicURL)
	cfg.CMS.APIToken = strings.TrimSpace(envOr("STRAPI_API_TOKEN", cfg.CMS.APIToken))
	cfg.CMS.Timeout = envDurationOr("STRAPI_TIMEOUT", cfg.CMS.Timeout)
	cfg.CMS.CommentRelationPrefix = envOr("COMMENT_RELATION_PREFIX", cfg.CMS.CommentRelationPrefix)

	cfg.Session.Secret = envOr("SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.CookieName = envOr("SESSION_COOKIE", cfg.Session.CookieName)
	cfg.Session.TTL = envDurationOr("SESSION_TTL", cfg.Session.TTL)
	cfg.Session.Secure = envBoolOr("SESSION_SECURE", cfg.Session.Secure)

	cfg.I18n.DefaultLocale = envOr("DEFAULT_LOCALE", cfg.I18n.DefaultLocale)
	cfg.I18n.SupportedLocales = envSliceOr("SUPPORTED_LOCALES", cfg.I18n.SupportedLocales)
	cfg.I18n.TimeZone = envOr("IMAGEBOARD_TIMEZONE", cfg.I18n.TimeZone)

	cfg.Upload.MaxBytes = int64(envIntOr("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes)))
	cfg.Upload.AllowedTypes = envSliceOr("UPLOAD_ALLOWED_TYPES", cfg.Upload.AllowedTypes)

	cfg.RateLimit.RequestsPerSecond = envFloatOr("IMAGEBOARD_RATE_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = envIntOr("IMAGEBOARD_RATE_BURST", cfg.RateLimit.Burst)

	cfg.Cache.TTL = envDurationOr("CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.MaxEntries = envIntOr("CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)

	cfg.Log.Level = envOr("IMAGEBOARD_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("IMAGEBOARD_LOG_FORMAT", cfg.Log.Format)

	cfg.Webhook.Secret = envOr("CMS_WEBHOOK_SECRET", cfg.Webhook.Secret)
	cfg.Metrics.Enabled = envBoolOr("IMAGEBOARD_METRICS", cfg.Metrics.Enabled)
}

// finalize validates the merged configuration and fills derived fields.
func (c *Config) finalize() error {
	c.CMS.URL = strings.TrimRight(strings.TrimSpace(c.CMS.URL), "/")
	if c.CMS.URL == "" {
		return errors.New("config: STRAPI_URL is required")
	}
	if c.CMS.PublicURL == "" {
		c.CMS.PublicURL = c.CMS.URL
	}
	c.CMS.PublicURL = strings.TrimRight(c.CMS.PublicURL, "/")

	if c.Session.Secret == "" {
		if c.Server.Mode == "release" {
			return errors.New("config: SESSION_SECRET is required in release mode")
		}
		c.Session.Secret = "imageboard-dev-secret"
	}

	c.I18n.SupportedLocales = filterKnown(c.I18n.SupportedLocales)
	if !contains(c.I18n.SupportedLocales, c.I18n.DefaultLocale) {
		c.I18n.DefaultLocale = c.I18n.SupportedLocales[0]
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("config: UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1
	}
	return nil
}

// filterKnown keeps the known locales from list, preserving order. An empty
// result falls back to every known locale.
func filterKnown(list []string) []string {
	out := make([]string, 0, len(list))
	for _, l := range list {
		l = strings.ToLower(strings.TrimSpace(l))
		if contains(KnownLocales, l) && !contains(out, l) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), KnownLocales...)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
