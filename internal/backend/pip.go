package backend

import (
	"context"
	"os"
	"path/filepath"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

// errOutputLines bounds how much subprocess output an error message embeds.
const errOutputLines = 20

const venvDir = ".venv"

// Pip is the legacy flat-manifest backend: requirements.txt files installed
// into a python -m venv environment.
type Pip struct {
	runner *Runner
}

// NewPip creates the pip backend.
func NewPip(runner *Runner) *Pip {
	return &Pip{runner: runner}
}

func (p *Pip) Name() string { return "pip" }

func (p *Pip) Descriptor() Descriptor {
	return Descriptor{
		ID:            "pip",
		Capabilities:  allCapabilities(),
		ManifestFiles: []string{"requirements.txt", "requirements-dev.txt"},
	}
}

func (p *Pip) CreateEnvironment(ctx context.Context, projectRoot string) (*Environment, error) {
	result, err := p.runner.Run(ctx, projectRoot, "python", "-m", "venv", venvDir)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fkerrors.EnvironmentCreate(p.Name(), result.ExitCode, result.OutputTail(errOutputLines))
	}

	return &Environment{
		ProjectRoot: projectRoot,
		Path:        filepath.Join(projectRoot, venvDir),
	}, nil
}

func (p *Pip) Install(ctx context.Context, env *Environment) (*ExecutionResult, error) {
	args := []string{"install", "-r", "requirements.txt"}
	if _, err := os.Stat(filepath.Join(env.ProjectRoot, "requirements-dev.txt")); err == nil {
		args = append(args, "-r", "requirements-dev.txt")
	}

	pip := filepath.Join(env.Path, "bin", "pip")

	return p.runner.Run(ctx, env.ProjectRoot, pip, args...)
}

func (p *Pip) ActivationHint(env *Environment) string {
	return "source " + filepath.Join(venvDir, "bin", "activate")
}

func (p *Pip) TestCommand(env *Environment, argv []string) []string {
	if len(argv) == 0 {
		return nil
	}

	adapted := make([]string, len(argv))
	copy(adapted, argv)
	adapted[0] = filepath.Join(env.Path, "bin", argv[0])

	return adapted
}
