package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/builder"
	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

var newCmd = &cobra.Command{
	Use:     "new <project-name>",
	Aliases: []string{"n", "startproject"},
	Short:   "Create a FastAPI project from a template",
	Long: `Create a new FastAPI project: materialize a template, generate the
dependency manifest for the selected backend, create an isolated
environment, and install the dependencies.

A failure during materialization removes the destination again. A failure
during environment creation or installation keeps the materialized project
and reports it as partial, so the install can be retried by hand.

Examples:
  fastkit new my-api                          # default template and backend
  fastkit new my-api -t minimal -b uv         # pick template and backend
  fastkit new my-api -o /srv/projects/my-api  # explicit destination
  fastkit new my-api --author "J. Doe" --description "Orders API"`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var (
	newTemplate       string
	newBackend        string
	newDestination    string
	newAuthor         string
	newAuthorEmail    string
	newDescription    string
	newProjectVersion string
	newOverwrite      bool
	newKeepPartial    bool
)

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVarP(&newTemplate, "template", "t", "minimal", "template identifier to materialize")
	newCmd.Flags().StringVarP(&newBackend, "backend", "b", "", "package-manager backend (pip, uv, pdm, poetry; default from config)")
	newCmd.Flags().StringVarP(&newDestination, "output", "o", "", "destination directory (default <base_dir>/<project-name>)")
	newCmd.Flags().StringVar(&newAuthor, "author", "", "project author name")
	newCmd.Flags().StringVar(&newAuthorEmail, "author-email", "", "project author email")
	newCmd.Flags().StringVar(&newDescription, "description", "", "project description")
	newCmd.Flags().StringVar(&newProjectVersion, "project-version", "0.1.0", "initial project version")
	newCmd.Flags().BoolVar(&newOverwrite, "overwrite", false, "materialize into an existing destination directory")
	newCmd.Flags().BoolVar(&newKeepPartial, "keep-partial", false, "keep partially materialized output on failure, for diagnostics")
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	orch := builder.New(cfg, newRegistry(cfg, logger), logger)
	state, err := orch.Create(cmd.Context(), builder.Request{
		Metadata: project.Metadata{
			Name:        args[0],
			Author:      newAuthor,
			AuthorEmail: newAuthorEmail,
			Description: newDescription,
			Version:     newProjectVersion,
		},
		Template:    newTemplate,
		Backend:     newBackend,
		Destination: newDestination,
		Overwrite:   newOverwrite,
		KeepPartial: newKeepPartial,
	})
	if err != nil {
		reportCreateFailure(cmd, state, err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s at %s\n", args[0], state.Destination)
	for _, path := range state.ManifestPaths {
		fmt.Fprintf(cmd.OutOrStdout(), "  manifest: %s\n", path)
	}
	if state.ActivationHint != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nActivate the environment with:\n  %s\n", state.ActivationHint)
	}

	return nil
}

// reportCreateFailure prints the failure context before the error itself
// bubbles up as the exit status.
func reportCreateFailure(cmd *cobra.Command, state *builder.BuildState, err error) {
	out := cmd.ErrOrStderr()

	if state != nil && state.Partial {
		fmt.Fprintf(out, "Project creation failed during %s; partial output retained at %s\n",
			state.FailedAt, state.Destination)
	}

	var fkErr *fkerrors.FastkitError
	if errors.As(err, &fkErr) && fkErr.Code == fkerrors.ErrCodeDependencyInstall &&
		state != nil && state.Install != nil {
		fmt.Fprintln(out, "Install output:")
		fmt.Fprintln(out, state.Install.Combined)
	}
}
