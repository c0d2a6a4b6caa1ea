package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CHAPTERWATCH"

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on the returned Config.
func Load(configPath string) (*Config, error) {
	// .env is optional; it only seeds the process environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("chapterwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".chapterwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper. Every key is registered
// so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.name", cfg.Site.Name)
	v.SetDefault("site.book_links_file", cfg.Site.BookLinksFile)
	v.SetDefault("site.chapter_delimiter", cfg.Site.ChapterDelimiter)
	v.SetDefault("site.wait_timeout", cfg.Site.WaitTimeout)
	v.SetDefault("site.on_error", cfg.Site.OnError)

	v.SetDefault("browser.mode", cfg.Browser.Mode)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.disable_gpu", cfg.Browser.DisableGPU)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.conflict", cfg.Storage.Conflict)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// SaveYAML writes cfg to path, creating parent directories.
func SaveYAML(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := MarshalYAML(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// durationKeys are the config keys holding a time.Duration.
var durationKeys = map[string]bool{
	"wait_timeout":     true,
	"navigate_timeout": true,
	"timeout":          true,
}

// MarshalYAML renders cfg as YAML. Durations are written as "30s" style
// strings so the file reads back through Load unchanged.
func MarshalYAML(cfg *Config) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	formatDurations(&node)
	data, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func formatDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if durationKeys[key.Value] && val.Kind == yaml.ScalarNode && val.Tag == "!!int" {
				if ns, err := strconv.ParseInt(val.Value, 10, 64); err == nil {
					val.Value = time.Duration(ns).String()
					val.Tag = "!!str"
				}
			}
		}
	}
	for _, c := range n.Content {
		formatDurations(c)
	}
}

// Redacted returns a copy of cfg with credentials removed from the
// storage URI, suitable for printing.
func Redacted(cfg *Config) *Config {
	c := *cfg
	c.Site.Selectors = make(map[string]string, len(cfg.Site.Selectors))
	for k, val := range cfg.Site.Selectors {
		c.Site.Selectors[k] = val
	}
	c.Storage.URI = RedactURI(cfg.Storage.URI)
	return &c
}
