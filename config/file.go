package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk TOML layout. Every field is optional; unset
// fields keep their defaults.
type fileConfig struct {
	Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
		Mode string `toml:"mode"`
	} `toml:"server"`
	CMS struct {
		URL                   string `toml:"url"`
		PublicURL             string `toml:"public_url"`
		APIToken              string `toml:"api_token"`
		Timeout               string `toml:"timeout"`
		CommentRelationPrefix string `toml:"comment_relation_prefix"`
	} `toml:"cms"`
	Session struct {
		Secret     string `toml:"secret"`
		CookieName string `toml:"cookie_name"`
		TTL        string `toml:"ttl"`
		Secure     *bool  `toml:"secure"`
	} `toml:"session"`
	I18n struct {
		DefaultLocale    string   `toml:"default_locale"`
		SupportedLocales []string `toml:"supported_locales"`
		TimeZone         string   `toml:"time_zone"`
	} `toml:"i18n"`
	Upload struct {
		MaxBytes     int64    `toml:"max_bytes"`
		AllowedTypes []string `toml:"allowed_types"`
	} `toml:"upload"`
	RateLimit struct {
		RequestsPerSecond float64 `toml:"rps"`
		Burst             int     `toml:"burst"`
	} `toml:"rate_limit"`
	Cache struct {
		TTL        string `toml:"ttl"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"cache"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Webhook struct {
		Secret string `toml:"secret"`
	} `toml:"webhook"`
	Metrics struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"metrics"`
}

// applyFile overlays the TOML file at path onto cfg.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Server.Host, raw.Server.Host)
	setInt(&cfg.Server.Port, raw.Server.Port)
	setString(&cfg.Server.Mode, raw.Server.Mode)

	setString(&cfg.CMS.URL, raw.CMS.URL)
	setString(&cfg.CMS.PublicURL, raw.CMS.PublicURL)
	setString(&cfg.CMS.APIToken, raw.CMS.APIToken)
	setString(&cfg.CMS.CommentRelationPrefix, raw.CMS.CommentRelationPrefix)
	if err := setDuration(&cfg.CMS.Timeout, raw.CMS.Timeout, "cms.timeout"); err != nil {
		return err
	}

	setString(&cfg.Session.Secret, raw.Session.Secret)
	setString(&cfg.Session.CookieName, raw.Session.CookieName)
	if err := setDuration(&cfg.Session.TTL, raw.Session.TTL, "session.ttl"); err != nil {
		return err
	}
	if raw.Session.Secure != nil {
		cfg.Session.Secure = *raw.Session.Secure
	}

	setString(&cfg.I18n.DefaultLocale, raw.I18n.DefaultLocale)
	if len(raw.I18n.SupportedLocales) > 0 {
		cfg.I18n.SupportedLocales = raw.I18n.SupportedLocales
	}
	setString(&cfg.I18n.TimeZone, raw.I18n.TimeZone)

	if raw.Upload.MaxBytes > 0 {
		cfg.Upload.MaxBytes = raw.Upload.MaxBytes
	}
	if len(raw.Upload.AllowedTypes) > 0 {
		cfg.Upload.AllowedTypes = raw.Upload.AllowedTypes
	}

	if raw.RateLimit.RequestsPerSecond > 0 {
		cfg.RateLimit.RequestsPerSecond = raw.RateLimit.RequestsPerSecond
	}
	setInt(&cfg.RateLimit.Burst, raw.RateLimit.Burst)

	if err := setDuration(&cfg.Cache.TTL, raw.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}
	setInt(&cfg.Cache.MaxEntries, raw.Cache.MaxEntries)

	setString(&cfg.Log.Level, raw.Log.Level)
	setString(&cfg.Log.Format, raw.Log.Format)

	setString(&cfg.Webhook.Secret, raw.Webhook.Secret)
	if raw.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *raw.Metrics.Enabled
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", field, err)
	}
	*dst = d
	return nil
}
