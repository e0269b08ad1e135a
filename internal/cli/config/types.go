// Package config provides configuration management for the pithos CLI.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pithos/internal/cli/output"
	"github.com/leapstack-labs/pithos/internal/envcompose"
	"github.com/leapstack-labs/pithos/internal/protosync"
	"github.com/leapstack-labs/pithos/internal/repo"
	"github.com/leapstack-labs/pithos/internal/state"
)

// Config holds all CLI configuration options.
type Config struct {
	Root         string            `koanf:"root"`
	Sentinel     string            `koanf:"sentinel"`
	IDLDir       string            `koanf:"idl_dir"`
	GenDir       string            `koanf:"gen_dir"`
	LibsDir      string            `koanf:"libs_dir"`
	VenvDir      string            `koanf:"venv_dir"`
	Generator    []string          `koanf:"generator"`
	StatePath    string            `koanf:"state_path"`
	History      bool              `koanf:"history"`
	Verbose      bool              `koanf:"verbose"`
	OutputFormat string            `koanf:"output"`
	LogLevel     string            `koanf:"log_level"`
	Hints        map[string]string `koanf:"hints"`

	// ProjectRoot is the resolved monorepo root. Not read from config.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultSentinel  = repo.DefaultSentinel
	DefaultIDLDir    = protosync.DefaultIDLDir
	DefaultGenDir    = protosync.DefaultGenDir
	DefaultLibsDir   = envcompose.DefaultLibsDir
	DefaultVenvDir   = envcompose.DefaultVenvDir
	DefaultStateFile = state.DefaultPath
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
)

// ConfigFileNames are searched, in order, in each directory.
var ConfigFileNames = []string{"pithos.yaml", "pithos.yml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Sentinel == "" {
		return fmt.Errorf("sentinel is required")
	}
	if len(c.Generator) == 0 || strings.TrimSpace(c.Generator[0]) == "" {
		return fmt.Errorf("generator is required")
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", s)
	}
	return level, nil
}

// Level returns the effective log level; verbose forces debug.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}
