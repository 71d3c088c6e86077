// Package cmd provides the fastkit command-line interface.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --log-level, etc.) - highest priority
//	2. FASTKIT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (FASTKIT_BACKEND_DEFAULT, etc.)
//	4. Configuration files (.fastkit.yml) - lowest priority
//
// Environment Variables:
//
//	FASTKIT_CONFIG_FILE: Path to custom configuration file
//	FASTKIT_TEMPLATES_DIR: Override the template search directory
//	FASTKIT_BACKEND_DEFAULT: Override the default package-manager backend
//	FASTKIT_OUTPUT_BASE_DIR: Override where new projects are created
//	And more following the FASTKIT_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/config"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fastkit",
	Short: "A FastAPI project scaffolding and template toolchain",
	Long: `Fastkit creates FastAPI projects from templates, installs their
dependencies through the package manager of your choice, and validates
template trees before they ship.

Key Features:
  • Template materialization with placeholder substitution
  • Backend-agnostic dependency installation (pip, uv, pdm, poetry)
  • Atomic route scaffolding into existing projects
  • Batch template inspection with static and dynamic checks

Quick Start:
  fastkit new my-api              Create a project from the default template
  fastkit addroute items          Scaffold a route into the current project
  fastkit list                    List available templates and backends
  fastkit inspect                 Validate every template in the search dir`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Commands run under a context canceled on SIGINT/SIGTERM,
// so an interrupt terminates any in-flight subprocess and lets the normal
// rollback and cleanup paths run before the process exits.
func Execute() error {
	ctx, stop := signalContext()
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// signalContext returns a context canceled on interrupt or termination
// signals.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .fastkit.yml, can also use FASTKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. FASTKIT_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .fastkit.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FASTKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fastkit")
	}

	viper.SetEnvPrefix("FASTKIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or malformed config file falls back to defaults; only the
	// commands themselves fail on invalid resolved values.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves configuration and builds the logger every command
// shares.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	return cfg, logger, nil
}

func newRegistry(cfg *config.Config, logger logging.Logger) *backend.Registry {
	runner := backend.NewRunner(cfg.Backend.InstallTimeout, logger)

	return backend.NewRegistry(runner)
}
