package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/template"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List available templates and backends",
	Long: `List the templates found in the configured template directory and the
supported package-manager backends.

Examples:
  fastkit list                    # table output
  fastkit list -f json            # machine-readable output`,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json)")

	AddFlagValidation(listCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"table", "json"})
	})
}

// templateListing is the per-template row of the list output.
type templateListing struct {
	ID           string `json:"id"`
	Description  string `json:"description,omitempty"`
	Dependencies int    `json:"dependencies"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	trees, err := template.LoadAll(cfg.Templates.Dir)
	if err != nil {
		return fmt.Errorf("failed to load templates from %s: %w", cfg.Templates.Dir, err)
	}

	listings := make([]templateListing, 0, len(trees))
	for _, tree := range trees {
		listing := templateListing{ID: tree.ID}
		if tree.Meta != nil {
			listing.Description = tree.Meta.Description
			listing.Dependencies = len(tree.Meta.Dependencies)
		}
		listings = append(listings, listing)
	}

	registry := newRegistry(cfg, logger)

	switch strings.ToLower(listFormat) {
	case "json":
		return outputListJSON(cmd, listings, registry.IDs(), cfg.Backend.Default)
	case "table":
		return outputListTable(cmd, listings, registry.IDs(), cfg.Backend.Default)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json)", listFormat)
	}
}

func outputListJSON(cmd *cobra.Command, listings []templateListing, backends []string, defaultBackend string) error {
	doc := struct {
		Templates      []templateListing `json:"templates"`
		Backends       []string          `json:"backends"`
		DefaultBackend string            `json:"default_backend"`
	}{
		Templates:      listings,
		Backends:       backends,
		DefaultBackend: defaultBackend,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

func outputListTable(cmd *cobra.Command, listings []templateListing, backends []string, defaultBackend string) error {
	out := cmd.OutOrStdout()

	if len(listings) == 0 {
		fmt.Fprintln(out, "No templates found.")
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TEMPLATE\tDEPS\tDESCRIPTION")
		for _, listing := range listings {
			fmt.Fprintf(w, "%s\t%d\t%s\n", listing.ID, listing.Dependencies, listing.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprint(out, "\nBackends: ")
	names := make([]string, len(backends))
	for i, id := range backends {
		names[i] = id
		if id == defaultBackend {
			names[i] = id + " (default)"
		}
	}
	fmt.Fprintln(out, strings.Join(names, ", "))

	return nil
}
