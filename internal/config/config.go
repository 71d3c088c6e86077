// Package config provides configuration management for fastkit using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// The configuration system supports YAML files and environment variable
// overrides with the FASTKIT_ prefix. It covers the destination base
// directory, the default package-manager backend, per-operation timeouts,
// and inspector settings. Components never read ambient state: the resolved
// Config value is passed into constructors explicitly.
package config

import (
	"time"

	"github.com/spf13/viper"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

type Config struct {
	Templates TemplatesConfig `yaml:"templates" mapstructure:"templates"`
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Inspector InspectorConfig `yaml:"inspector" mapstructure:"inspector"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

type TemplatesConfig struct {
	// Dir is the directory containing template trees, one subdirectory per
	// template id.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// ExcludePatterns are doublestar globs skipped while walking a template
	// tree, relative to the template root.
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

type BackendConfig struct {
	// Default is the backend identifier used when the caller does not pick
	// one explicitly. An unknown identifier still fails fast at selection
	// time; the default is never a silent fallback for a bad request.
	Default string `yaml:"default" mapstructure:"default"`
	// InstallTimeout bounds each environment-creation and install
	// subprocess.
	InstallTimeout time.Duration `yaml:"install_timeout" mapstructure:"install_timeout"`
}

type OutputConfig struct {
	// BaseDir is the directory new projects are created under when the
	// caller passes a bare project name instead of a full path.
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}

type InspectorConfig struct {
	// Workers bounds parallel template checks within one batch.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// TestTimeout bounds the dynamic check's test-command subprocess.
	TestTimeout time.Duration `yaml:"test_timeout" mapstructure:"test_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultExcludePatterns are always skipped while walking template trees.
var DefaultExcludePatterns = []string{
	"**/__pycache__/**",
	"**/*.pyc",
	".git/**",
	"**/.DS_Store",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Templates: TemplatesConfig{
			Dir:             "templates",
			ExcludePatterns: DefaultExcludePatterns,
		},
		Backend: BackendConfig{
			Default:        "pip",
			InstallTimeout: 5 * time.Minute,
		},
		Output: OutputConfig{
			BaseDir: ".",
		},
		Inspector: InspectorConfig{
			Workers:     4,
			TestTimeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves the configuration from viper's current state, applying
// defaults for anything unset.
func Load() (*Config, error) {
	config := Default()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeConfig,
			fkerrors.ErrCodeConfigInvalid, "failed to unmarshal configuration")
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyDefaults(config *Config) {
	defaults := Default()

	if config.Templates.Dir == "" {
		config.Templates.Dir = defaults.Templates.Dir
	}
	if len(config.Templates.ExcludePatterns) == 0 {
		config.Templates.ExcludePatterns = defaults.Templates.ExcludePatterns
	}
	if config.Backend.Default == "" {
		config.Backend.Default = defaults.Backend.Default
	}
	if config.Backend.InstallTimeout <= 0 {
		config.Backend.InstallTimeout = defaults.Backend.InstallTimeout
	}
	if config.Output.BaseDir == "" {
		config.Output.BaseDir = defaults.Output.BaseDir
	}
	if config.Inspector.Workers <= 0 {
		config.Inspector.Workers = defaults.Inspector.Workers
	}
	if config.Inspector.TestTimeout <= 0 {
		config.Inspector.TestTimeout = defaults.Inspector.TestTimeout
	}
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Logging.Format
	}
}

// Validate checks the resolved configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fkerrors.ConfigInvalid("logging.level must be one of debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fkerrors.ConfigInvalid("logging.format must be text or json")
	}

	if c.Inspector.Workers > 64 {
		return fkerrors.ConfigInvalid("inspector.workers must not exceed 64")
	}

	return nil
}
