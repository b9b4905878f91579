// Package config loads the analyzer configuration from a TOML or YAML file
// and validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/isseis/go-wcc/internal/analyzer"
	"github.com/isseis/go-wcc/internal/failure"
	"github.com/isseis/go-wcc/internal/report"
	"github.com/isseis/go-wcc/internal/walker"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

// Error definitions for the config package
var (
	// ErrInvalidConfig is returned when a configuration value is out of range
	// or the file cannot be decoded.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnsupportedConfigFormat is returned for a config file that is
	// neither TOML nor YAML.
	ErrUnsupportedConfigFormat = errors.New("unsupported config file format")
)

// Default values for configuration fields
const (
	DefaultRoot       = "."
	DefaultOutput     = "."
	DefaultFormat     = string(report.FormatJSON)
	DefaultOnError    = string(analyzer.OnErrorSkip)
	DefaultLogLevel   = "info"
	DefaultSkipHidden = true
)

// Config is the complete analyzer configuration.
type Config struct {
	Root           string   `toml:"root" yaml:"root"`
	Coverage       string   `toml:"coverage" yaml:"coverage"`
	Output         string   `toml:"output" yaml:"output"`
	Format         string   `toml:"format" yaml:"format"`
	Workers        int      `toml:"workers" yaml:"workers"`
	OnError        string   `toml:"on_error" yaml:"on_error"`
	StrictLanguage bool     `toml:"strict_language" yaml:"strict_language"`
	Include        []string `toml:"include" yaml:"include"`
	Exclude        []string `toml:"exclude" yaml:"exclude"`
	SkipHidden     bool     `toml:"skip_hidden" yaml:"skip_hidden"`
	MaxFileSize    int64    `toml:"max_file_size" yaml:"max_file_size"`
	MetricsFile    string   `toml:"metrics_file" yaml:"metrics_file"`
	Log            Log      `toml:"log" yaml:"log"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level" yaml:"level"`
	// File optionally names a file receiving JSON log records.
	File string `toml:"file" yaml:"file"`
}

// Default returns a Config holding every default value.
func Default() *Config {
	return &Config{
		Root:       DefaultRoot,
		Output:     DefaultOutput,
		Format:     DefaultFormat,
		Workers:    runtime.NumCPU(),
		OnError:    DefaultOnError,
		SkipHidden: DefaultSkipHidden,
		Log:        Log{Level: DefaultLogLevel},
	}
}

// Load reads the file at configPath over the defaults. The decoder is chosen
// by extension: .toml, or .yaml and .yml. Keys that the Config does not know
// are rejected.
//
// Load does not validate values, so that command line overrides can still
// replace them. Call Validate once the Config is final.
func Load(configPath string) (*Config, error) {
	content, err := os.ReadFile(configPath) // #nosec G304 -- configPath is the user-selected config file
	if err != nil {
		return nil, failure.FromIO(err)
	}

	cfg := Default()
	if err := decode(configPath, content, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(configPath string, content []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, configPath, err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(content, cfg); err != nil {
			return fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, configPath, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
	}
	return nil
}

// Validate checks every field. An unusable output destination or format is
// reported as failure.KindOutputPath; everything else wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root must not be empty", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalidConfig)
	}
	if _, err := analyzer.ParseOnError(c.OnError); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	for _, p := range slices.Concat(c.Include, c.Exclude) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("%w: bad pattern %q: %w", ErrInvalidConfig, p, err)
		}
	}

	format, err := report.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	return report.ValidateOutput(c.Output, format)
}

// ParseLevel converts a level name such as "debug" or "warn" into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	return level, nil
}

// WalkOptions returns the file selection part of the configuration.
func (c *Config) WalkOptions() walker.Options {
	return walker.Options{
		Include:     c.Include,
		Exclude:     c.Exclude,
		SkipHidden:  c.SkipHidden,
		MaxFileSize: c.MaxFileSize,
	}
}
