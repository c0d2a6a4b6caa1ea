package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values. Site names and
// selector keys are checked by the adapter factory, not here.
func Validate(cfg *Config) error {
	if cfg.Site.Name == "" {
		return fmt.Errorf("site.name must be set")
	}
	if cfg.Site.WaitTimeout < 0 {
		return fmt.Errorf("site.wait_timeout must be >= 0")
	}
	if cfg.Site.OnError != "" && cfg.Site.OnError != "abort" && cfg.Site.OnError != "skip" {
		return fmt.Errorf("site.on_error must be 'abort' or 'skip', got %q", cfg.Site.OnError)
	}

	if cfg.Browser.Mode != "rod" && cfg.Browser.Mode != "static" {
		return fmt.Errorf("browser.mode must be 'rod' or 'static', got %q", cfg.Browser.Mode)
	}
	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}

	switch cfg.Storage.Type {
	case "none":
	case "mongodb":
		if cfg.Storage.URI == "" {
			return fmt.Errorf("storage.uri is required for mongodb (set %s_STORAGE_URI)", EnvPrefix)
		}
		if cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.database and storage.collection are required for mongodb")
		}
	case "json":
		if cfg.Storage.OutputPath == "" {
			return fmt.Errorf("storage.output_path is required for json")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: none, mongodb, json)", cfg.Storage.Type)
	}

	validConflicts := map[string]bool{
		"error": true, "overwrite": true, "skip": true,
	}
	if !validConflicts[cfg.Storage.Conflict] {
		return fmt.Errorf("storage.conflict must be error/overwrite/skip, got %q", cfg.Storage.Conflict)
	}
	if cfg.Storage.Timeout <= 0 {
		return fmt.Errorf("storage.timeout must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for scraping.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// RedactURI replaces the password in a connection string with "xxxxx".
// A string that does not parse has its whole userinfo masked.
func RedactURI(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return maskUserinfo(raw)
	}
	if u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// maskUserinfo masks everything between the scheme separator and the last
// "@" of raw.
func maskUserinfo(raw string) string {
	start := strings.Index(raw, "://")
	if start < 0 {
		start = 0
	} else {
		start += len("://")
	}
	at := strings.LastIndex(raw, "@")
	if at < start {
		return raw
	}
	return raw[:start] + "xxxxx" + raw[at:]
}
