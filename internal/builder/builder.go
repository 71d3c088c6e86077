// Package builder implements the project creation orchestrator: a state
// machine composing the materializer, the manifest generator, and one
// package-manager backend into a full project-creation run, plus the
// incremental add-route operation.
package builder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/config"
	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/logging"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/manifest"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/template"
)

// State is one orchestrator state. A run moves strictly forward through
// these states; no state is skipped and nothing is retried.
type State string

const (
	StateCollectingInput       State = "COLLECTING_INPUT"
	StateMaterializing         State = "MATERIALIZING"
	StateManifestGenerated     State = "MANIFEST_GENERATED"
	StateEnvironmentCreated    State = "ENVIRONMENT_CREATED"
	StateDependenciesInstalled State = "DEPENDENCIES_INSTALLED"
	StateDone                  State = "DONE"
	StateFailed                State = "FAILED"
)

// Request describes one project-creation run.
type Request struct {
	Metadata project.Metadata
	// Template is the template identifier to materialize.
	Template string
	// Backend is the backend identifier; empty selects the configured
	// default.
	Backend string
	// Destination overrides the default <base_dir>/<name> output path.
	Destination string
	Overwrite   bool
	// KeepPartial disables materialization rollback, for diagnostics.
	KeepPartial bool
	// Extra adds substitution keys beyond the metadata-derived ones.
	Extra map[string]string
}

// BuildState is the accumulated outcome of a run. On failure it reports
// which state failed and whether a partial project directory was retained.
type BuildState struct {
	RunID       string
	State       State
	FailedAt    State
	Destination string
	// ManifestPaths are the generated manifest files, relative to the
	// destination.
	ManifestPaths []string
	// ActivationHint tells the user how to enter the created environment.
	ActivationHint string
	// Install holds the full captured install output, also on failure.
	Install *backend.ExecutionResult
	// Partial marks a retained destination that is materialized but not
	// fully installed. Never set together with a clean rollback.
	Partial bool
	Err     error
}

// Succeeded reports whether the run reached DONE.
func (s *BuildState) Succeeded() bool {
	return s.State == StateDone
}

// Orchestrator coordinates one project-creation or add-route request at a
// time. A single run is strictly sequential; concurrent runs must target
// distinct destinations.
type Orchestrator struct {
	cfg          *config.Config
	registry     *backend.Registry
	materializer *template.Materializer
	logger       logging.Logger
}

// New creates an orchestrator.
func New(cfg *config.Config, registry *backend.Registry, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Orchestrator{
		cfg:          cfg,
		registry:     registry,
		materializer: template.NewMaterializer(cfg.Templates.ExcludePatterns, logger),
		logger:       logger.WithComponent("builder"),
	}
}

// Create runs the full project-creation state machine.
//
// Failure policy: a materialization failure rolls the destination back
// (nothing durable exists yet); any later failure retains the destination
// and manifests as inspectable artifacts, flagged Partial, so the caller
// can retry just the install step.
func (o *Orchestrator) Create(ctx context.Context, req Request) (*BuildState, error) {
	state := &BuildState{
		RunID: uuid.NewString(),
		State: StateCollectingInput,
	}

	op := logging.Start(o.logger, "create-project")
	defer func() {
		if state.Err != nil {
			op.EndWithError(ctx, state.Err)
		} else {
			op.End(ctx)
		}
	}()

	// COLLECTING_INPUT: validate everything before the first write.
	if err := req.Metadata.Validate(); err != nil {
		return o.fail(ctx, state, err)
	}

	backendID := req.Backend
	if backendID == "" {
		backendID = o.cfg.Backend.Default
	}
	be, err := o.registry.Get(backendID)
	if err != nil {
		return o.fail(ctx, state, err)
	}

	tree, err := template.Load(o.cfg.Templates.Dir, req.Template)
	if err != nil {
		return o.fail(ctx, state, err)
	}

	deps := o.collectDependencies(tree)
	subst := project.NewSubstitutionContext(req.Metadata, req.Extra)

	destination := req.Destination
	if destination == "" {
		destination = filepath.Join(o.cfg.Output.BaseDir, req.Metadata.Name)
	}
	state.Destination = destination

	// MATERIALIZING
	o.transition(ctx, state, StateMaterializing)
	_, err = o.materializer.Materialize(ctx, tree, destination, subst, template.Options{
		Overwrite:   req.Overwrite,
		KeepPartial: req.KeepPartial,
	})
	if err != nil {
		// The materializer already rolled back (or kept partials on
		// request); the destination is gone unless diagnostics asked
		// otherwise.
		state.Partial = req.KeepPartial

		return o.fail(ctx, state, err)
	}

	// MANIFEST_GENERATED
	o.transition(ctx, state, StateManifestGenerated)
	m, err := manifest.Generate(deps, req.Metadata, be.Descriptor())
	if err != nil {
		state.Partial = true

		return o.fail(ctx, state, err)
	}
	if err := o.writeManifest(destination, m, state); err != nil {
		state.Partial = true

		return o.fail(ctx, state, err)
	}

	// ENVIRONMENT_CREATED
	o.transition(ctx, state, StateEnvironmentCreated)
	env, err := be.CreateEnvironment(ctx, destination)
	if err != nil {
		state.Partial = true

		return o.fail(ctx, state, err)
	}

	// DEPENDENCIES_INSTALLED
	o.transition(ctx, state, StateDependenciesInstalled)
	result, err := be.Install(ctx, env)
	state.Install = result
	if err != nil {
		state.Partial = true

		return o.fail(ctx, state, err)
	}
	if result.ExitCode != 0 {
		state.Partial = true

		return o.fail(ctx, state, fkerrors.DependencyInstall(
			be.Name(), result.ExitCode, result.OutputTail(20)))
	}

	state.ActivationHint = be.ActivationHint(env)
	o.transition(ctx, state, StateDone)

	return state, nil
}

func (o *Orchestrator) collectDependencies(tree *template.Tree) []project.Dependency {
	if tree.Meta != nil && len(tree.Meta.Dependencies) > 0 {
		return tree.Meta.Dependencies
	}

	// Templates without a declared list still get the framework floor.
	return []project.Dependency{
		{Name: "fastapi", Section: project.SectionRuntime},
		{Name: "uvicorn", Section: project.SectionRuntime},
	}
}

func (o *Orchestrator) writeManifest(destination string, m *manifest.Manifest, state *BuildState) error {
	for _, file := range m.Files {
		path := filepath.Join(destination, filepath.FromSlash(file.Path))
		if err := os.WriteFile(path, file.Content, 0o644); err != nil {
			return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to write manifest").WithPath(path)
		}
		state.ManifestPaths = append(state.ManifestPaths, file.Path)
	}

	return nil
}

func (o *Orchestrator) transition(ctx context.Context, state *BuildState, next State) {
	o.logger.Debug(ctx, "State transition",
		"run_id", state.RunID,
		"from", string(state.State),
		"to", string(next))
	state.State = next
}

func (o *Orchestrator) fail(ctx context.Context, state *BuildState, err error) (*BuildState, error) {
	state.FailedAt = state.State
	state.State = StateFailed
	state.Err = err
	o.logger.Error(ctx, err, "Run failed",
		"run_id", state.RunID,
		"failed_at", string(state.FailedAt),
		"partial", state.Partial)

	return state, err
}
