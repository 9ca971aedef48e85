// Package config loads steploom settings from defaults, a steploom.yaml
// file, STEPLOOM_ environment variables and command-line flags.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/joshharrison/steploom/internal/scheduler"
)

// Defaults.
const (
	DefaultFormat   = "table"
	DefaultStateDir = ".steploom"
	DefaultLogLevel = "warn"
	EnvPrefix       = "STEPLOOM_"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// ConfigFiles are searched in the working directory when no file is given.
var ConfigFiles = []string{"steploom.yaml", "steploom.yml"}

// Config holds all CLI settings.
type Config struct {
	Durations    string `koanf:"durations"`
	DurationPath string `koanf:"duration_path"` // gjson path into JSON duration files
	Sheet        string `koanf:"sheet"`
	Output       string `koanf:"output"`
	Format       string `koanf:"format"`
	Advance      string `koanf:"advance"`
	ImagingLabel string `koanf:"imaging_label"`
	LogLevel     string `koanf:"log_level"`
	Verbose      bool   `koanf:"verbose"`
	StateDir     string `koanf:"state_dir"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

type loggerKey struct{}

// Load merges configuration sources.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"format":        DefaultFormat,
		"advance":       string(scheduler.AdvanceForward),
		"imaging_label": scheduler.DefaultImagingLabel,
		"log_level":     DefaultLogLevel,
		"verbose":       false,
		"state_dir":     DefaultStateDir,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// STEPLOOM_IMAGING_LABEL -> imaging_label
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			// --json is shorthand for --format json
			if f.Name == "json" {
				if on, _ := flags.GetBool("json"); on {
					return "format", FormatJSON
				}
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile returns the explicit path or the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatTable, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("invalid format %q (want table, json or csv)", c.Format)
	}
	if !scheduler.AdvanceMode(c.Advance).Valid() {
		return fmt.Errorf("invalid advance mode %q (want forward or candidate)", c.Advance)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level resolves the slog level; Verbose forces debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// NewLogger builds a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.Level()
	if err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}
