package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/builder"
)

var addRouteCmd = &cobra.Command{
	Use:     "addroute <route-name>",
	Aliases: []string{"route"},
	Short:   "Scaffold an API route into an existing project",
	Long: `Scaffold a new API route package (router, schemas, crud) under src/
and register it with the application's route aggregator.

The operation is atomic: if any step fails, every file it created is
removed and the aggregator is restored byte for byte.

Examples:
  fastkit addroute items                   # scaffold src/items in the current dir
  fastkit addroute orders -p ./my-api      # scaffold into another project`,
	Args: cobra.ExactArgs(1),
	RunE: runAddRoute,
}

var addRouteProject string

func init() {
	rootCmd.AddCommand(addRouteCmd)

	addRouteCmd.Flags().StringVarP(&addRouteProject, "project", "p", ".", "project root directory")
}

func runAddRoute(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	orch := builder.New(cfg, newRegistry(cfg, logger), logger)
	if err := orch.AddRoute(cmd.Context(), addRouteProject, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added route %s under src/%s and registered it in src/main.py\n",
		args[0], args[0])

	return nil
}
