// Package config defines the rewatch configuration and its load path.
// Precedence, lowest to highest: built-in defaults, config file, REWATCH_*
// environment variables, command-line flags. Flag binding happens in the
// cmd package; everything funnels through viper and lands here via Load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/corey/rewatch/internal/domain/filter"
)

// FileName is the project-local config file looked up in the watch root.
const FileName = ".rewatch.yaml"

// Config is the complete rewatch configuration. Immutable once Load has
// validated it; every component reads, none writes.
type Config struct {
	// Root is the directory tree to watch. Must exist.
	Root string `mapstructure:"root" yaml:"root" validate:"required,dir"`
	// Command is the child command line, run with Root as working directory.
	// Required unless NoRun is set.
	Command []string `mapstructure:"command" yaml:"command"`
	// Extensions is the file extension allow list. Empty allows every
	// extension. Entries are normalized: lowercased, leading dot added.
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	// IgnoreDirs are directory names (not paths) whose subtrees are never
	// watched or scanned.
	IgnoreDirs []string `mapstructure:"ignore_dirs" yaml:"ignore_dirs"`
	// Debounce is the quiet period a change must survive before it
	// triggers a restart.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" validate:"gt=0"`
	// Grace is how long a stopped child may take to exit cooperatively
	// before it is killed.
	Grace time.Duration `mapstructure:"grace" yaml:"grace" validate:"gt=0"`
	// Poll switches change detection from OS notification to periodic
	// tree scans, for filesystems where notification doesn't work.
	Poll bool `mapstructure:"poll" yaml:"poll"`
	// PollInterval is the time between tree scans in poll mode.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
	// NoRun watches and reports changes without running any command.
	NoRun bool `mapstructure:"no_run" yaml:"no_run"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig controls console log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	// Format is one of text, json, logfmt.
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json logfmt"`
}

// Default returns the built-in configuration: watch the current directory
// for Go file changes and rerun `go run .`.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Root:       cwd,
		Command:    []string{"go", "run", "."},
		Extensions: []string{".go"},
		IgnoreDirs: []string{
			".git",
			"bin",
			"dist",
			"node_modules",
			"target",
			"tmp",
			"vendor",
		},
		Debounce:     250 * time.Millisecond,
		Grace:        5 * time.Second,
		Poll:         false,
		PollInterval: time.Second,
		NoRun:        false,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers the default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("root", defaults.Root)
	viper.SetDefault("command", defaults.Command)
	viper.SetDefault("extensions", defaults.Extensions)
	viper.SetDefault("ignore_dirs", defaults.IgnoreDirs)
	viper.SetDefault("debounce", defaults.Debounce)
	viper.SetDefault("grace", defaults.Grace)
	viper.SetDefault("poll", defaults.Poll)
	viper.SetDefault("poll_interval", defaults.PollInterval)
	viper.SetDefault("no_run", defaults.NoRun)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.format", defaults.Log.Format)
}

// Load reads the merged configuration out of viper, normalizes it, and
// validates it. Any error here is fatal at startup.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize resolves the root to an absolute path and canonicalizes the
// extension list so "go" and ".GO" behave like ".go".
func (c *Config) normalize() {
	if abs, err := filepath.Abs(c.Root); err == nil {
		c.Root = abs
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = filter.NormalizeExt(ext)
	}
}

// Validate checks the configuration. Struct tags cover the simple
// constraints; the cross-field rules are spelled out below.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !c.NoRun && len(c.Command) == 0 {
		return fmt.Errorf("invalid configuration: command is required unless no_run is set")
	}
	for _, part := range c.Command {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("invalid configuration: command contains an empty argument")
		}
	}
	for _, d := range c.IgnoreDirs {
		if d == "" || strings.ContainsRune(d, os.PathSeparator) {
			return fmt.Errorf("invalid configuration: ignore_dirs entries must be bare directory names, got %q", d)
		}
	}
	return nil
}

// MarshalYAML emits durations in their human form ("250ms") so the
// printed config parses back to the same values.
func (c *Config) MarshalYAML() (interface{}, error) {
	type logAlias struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
	return struct {
		Root         string   `yaml:"root"`
		Command      []string `yaml:"command"`
		Extensions   []string `yaml:"extensions"`
		IgnoreDirs   []string `yaml:"ignore_dirs"`
		Debounce     string   `yaml:"debounce"`
		Grace        string   `yaml:"grace"`
		Poll         bool     `yaml:"poll"`
		PollInterval string   `yaml:"poll_interval"`
		NoRun        bool     `yaml:"no_run"`
		Log          logAlias `yaml:"log"`
	}{
		Root:         c.Root,
		Command:      c.Command,
		Extensions:   c.Extensions,
		IgnoreDirs:   c.IgnoreDirs,
		Debounce:     c.Debounce.String(),
		Grace:        c.Grace.String(),
		Poll:         c.Poll,
		PollInterval: c.PollInterval.String(),
		NoRun:        c.NoRun,
		Log:          logAlias{Level: c.Log.Level, Format: c.Log.Format},
	}, nil
}

// ConfigDir returns the user-level config directory for rewatch.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rewatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rewatch"
	}
	return filepath.Join(home, ".config", "rewatch")
}

// CommandLine returns the child command as one printable string.
func (c *Config) CommandLine() string {
	return strings.Join(c.Command, " ")
}
