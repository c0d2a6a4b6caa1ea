package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ChapterWatch.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteConfig selects the site adapter and carries its selectors.
type SiteConfig struct {
	Name             string            `mapstructure:"name"              yaml:"name"`
	BookLinksFile    string            `mapstructure:"book_links_file"   yaml:"book_links_file"`
	Selectors        map[string]string `mapstructure:"selectors"         yaml:"selectors,omitempty"`
	ChapterDelimiter string            `mapstructure:"chapter_delimiter" yaml:"chapter_delimiter,omitempty"`
	WaitTimeout      time.Duration     `mapstructure:"wait_timeout"      yaml:"wait_timeout,omitempty"`
	OnError          string            `mapstructure:"on_error"          yaml:"on_error,omitempty"` // abort, skip
}

// BrowserConfig controls how pages are loaded.
type BrowserConfig struct {
	Mode            string        `mapstructure:"mode"             yaml:"mode"` // rod, static
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	DisableGPU      bool          `mapstructure:"disable_gpu"      yaml:"disable_gpu"`
	NoSandbox       bool          `mapstructure:"no_sandbox"       yaml:"no_sandbox"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	Bin             string        `mapstructure:"bin"              yaml:"bin,omitempty"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent,omitempty"`
}

// StorageConfig controls where extracted records go.
type StorageConfig struct {
	Type       string        `mapstructure:"type"        yaml:"type"` // none, mongodb, json
	URI        string        `mapstructure:"uri"         yaml:"uri,omitempty"`
	Database   string        `mapstructure:"database"    yaml:"database"`
	Collection string        `mapstructure:"collection"  yaml:"collection"`
	OutputPath string        `mapstructure:"output_path" yaml:"output_path"`
	Conflict   string        `mapstructure:"conflict"    yaml:"conflict"` // error, overwrite, skip
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:          "asura",
			BookLinksFile: "books.txt",
		},
		Browser: BrowserConfig{
			Mode:            "rod",
			Headless:        true,
			DisableGPU:      true,
			NavigateTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type:       "none",
			Database:   "library",
			Collection: "books",
			OutputPath: "./output/books.json",
			Conflict:   "error",
			Timeout:    10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
