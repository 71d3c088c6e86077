package backend

import (
	"context"
	"path/filepath"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

// The three structured-manifest backends share the same shape: one tool
// binary, a pyproject.toml manifest, a tool-managed environment. Only the
// argv vectors differ.

// Uv is the uv backend.
type Uv struct {
	runner *Runner
}

// NewUv creates the uv backend.
func NewUv(runner *Runner) *Uv {
	return &Uv{runner: runner}
}

func (u *Uv) Name() string { return "uv" }

func (u *Uv) Descriptor() Descriptor {
	return Descriptor{
		ID:            "uv",
		Capabilities:  allCapabilities(),
		ManifestFiles: []string{"pyproject.toml"},
	}
}

func (u *Uv) CreateEnvironment(ctx context.Context, projectRoot string) (*Environment, error) {
	result, err := u.runner.Run(ctx, projectRoot, "uv", "venv", venvDir)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fkerrors.EnvironmentCreate(u.Name(), result.ExitCode, result.OutputTail(errOutputLines))
	}

	return &Environment{
		ProjectRoot: projectRoot,
		Path:        filepath.Join(projectRoot, venvDir),
	}, nil
}

func (u *Uv) Install(ctx context.Context, env *Environment) (*ExecutionResult, error) {
	return u.runner.Run(ctx, env.ProjectRoot, "uv", "sync")
}

func (u *Uv) ActivationHint(env *Environment) string {
	return "source " + filepath.Join(venvDir, "bin", "activate")
}

func (u *Uv) TestCommand(env *Environment, argv []string) []string {
	return append([]string{"uv", "run"}, argv...)
}

// Pdm is the pdm backend.
type Pdm struct {
	runner *Runner
}

// NewPdm creates the pdm backend.
func NewPdm(runner *Runner) *Pdm {
	return &Pdm{runner: runner}
}

func (p *Pdm) Name() string { return "pdm" }

func (p *Pdm) Descriptor() Descriptor {
	return Descriptor{
		ID:            "pdm",
		Capabilities:  allCapabilities(),
		ManifestFiles: []string{"pyproject.toml"},
	}
}

func (p *Pdm) CreateEnvironment(ctx context.Context, projectRoot string) (*Environment, error) {
	result, err := p.runner.Run(ctx, projectRoot, "pdm", "venv", "create", "--force")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fkerrors.EnvironmentCreate(p.Name(), result.ExitCode, result.OutputTail(errOutputLines))
	}

	return &Environment{ProjectRoot: projectRoot}, nil
}

func (p *Pdm) Install(ctx context.Context, env *Environment) (*ExecutionResult, error) {
	return p.runner.Run(ctx, env.ProjectRoot, "pdm", "install")
}

func (p *Pdm) ActivationHint(env *Environment) string {
	return "pdm venv activate"
}

func (p *Pdm) TestCommand(env *Environment, argv []string) []string {
	return append([]string{"pdm", "run"}, argv...)
}

// Poetry is the poetry backend.
type Poetry struct {
	runner *Runner
}

// NewPoetry creates the poetry backend.
func NewPoetry(runner *Runner) *Poetry {
	return &Poetry{runner: runner}
}

func (p *Poetry) Name() string { return "poetry" }

func (p *Poetry) Descriptor() Descriptor {
	return Descriptor{
		ID:            "poetry",
		Capabilities:  allCapabilities(),
		ManifestFiles: []string{"pyproject.toml"},
	}
}

func (p *Poetry) CreateEnvironment(ctx context.Context, projectRoot string) (*Environment, error) {
	result, err := p.runner.Run(ctx, projectRoot, "poetry", "env", "use", "python3")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fkerrors.EnvironmentCreate(p.Name(), result.ExitCode, result.OutputTail(errOutputLines))
	}

	return &Environment{ProjectRoot: projectRoot}, nil
}

func (p *Poetry) Install(ctx context.Context, env *Environment) (*ExecutionResult, error) {
	return p.runner.Run(ctx, env.ProjectRoot, "poetry", "install", "--no-root")
}

func (p *Poetry) ActivationHint(env *Environment) string {
	return "poetry shell"
}

func (p *Poetry) TestCommand(env *Environment, argv []string) []string {
	return append([]string{"poetry", "run"}, argv...)
}
