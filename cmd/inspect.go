package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/inspector"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [template-id...]",
	Aliases: []string{"check"},
	Short:   "Validate templates against the rule set",
	Long: `Validate one or more templates, every template in the search directory
when no ids are given. Templates are checked in parallel and in isolation:
one broken template never stops the batch.

The static rules verify required entries, marker discipline, declared
dependencies, the generated-by marker, and the entrypoint. With --dynamic
each template is additionally materialized into a throwaway directory, its
dependencies installed, and its declared test command executed.

The command exits nonzero when any template fails.

Examples:
  fastkit inspect                       # static-check every template
  fastkit inspect minimal               # static-check one template
  fastkit inspect --dynamic             # full check, needs backend tooling
  fastkit inspect -f json               # machine-readable report
  fastkit inspect -v --stream           # per-rule detail, progressive output`,
	RunE: runInspect,
}

var (
	inspectDynamic bool
	inspectFormat  string
	inspectVerbose bool
	inspectStream  bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectDynamic, "dynamic", false, "materialize, install, and run each template's test command")
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "report format (text, json, yaml)")
	inspectCmd.Flags().BoolVarP(&inspectVerbose, "verbose", "v", false, "include passed rules in the report")
	inspectCmd.Flags().BoolVar(&inspectStream, "stream", false, "emit one JSON line per template as checks complete")

	AddFlagValidation(inspectCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"text", "json", "yaml"})
	})
}

func runInspect(cmd *cobra.Command, args []string) error {
	switch strings.ToLower(inspectFormat) {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", inspectFormat)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	opts := inspector.Options{Mode: inspector.ModeStatic, Verbose: inspectVerbose}
	if inspectDynamic {
		opts.Mode = inspector.ModeDynamic
	}
	if inspectStream {
		opts.Stream = inspector.NewStreamWriter(cmd.ErrOrStderr())
	}

	ins := inspector.New(cfg, newRegistry(cfg, logger), logger)
	report, err := ins.Inspect(cmd.Context(), cfg.Templates.Dir, args, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(inspectFormat) {
	case "json":
		err = report.WriteJSON(out)
	case "yaml":
		err = report.WriteYAML(out)
	default:
		err = report.WriteText(out)
	}
	if err != nil {
		return err
	}

	if !report.Passed() {
		return fmt.Errorf("%d of %d templates failed inspection",
			report.Summary.Failed, report.Summary.Total)
	}

	return nil
}
