package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/config"
	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// stubBackend satisfies backend.Backend without spawning subprocesses.
type stubBackend struct {
	id            string
	envErr        error
	installResult *backend.ExecutionResult
	installErr    error
	installCalls  int
}

func (s *stubBackend) Name() string { return s.id }

func (s *stubBackend) Descriptor() backend.Descriptor {
	// Reuse the pip manifest schema so the generator accepts the stub.
	d := backend.NewPip(nil).Descriptor()
	d.ID = "pip"

	return d
}

func (s *stubBackend) CreateEnvironment(ctx context.Context, projectRoot string) (*backend.Environment, error) {
	if s.envErr != nil {
		return nil, s.envErr
	}

	return &backend.Environment{ProjectRoot: projectRoot, Path: filepath.Join(projectRoot, ".venv")}, nil
}

func (s *stubBackend) Install(ctx context.Context, env *backend.Environment) (*backend.ExecutionResult, error) {
	s.installCalls++
	if s.installErr != nil {
		return nil, s.installErr
	}
	if s.installResult != nil {
		return s.installResult, nil
	}

	return &backend.ExecutionResult{ExitCode: 0, Combined: "ok\n"}, nil
}

func (s *stubBackend) ActivationHint(env *backend.Environment) string {
	return "source .venv/bin/activate"
}

func (s *stubBackend) TestCommand(env *backend.Environment, argv []string) []string { return argv }

func testOrchestrator(t *testing.T, stub *stubBackend) (*Orchestrator, *config.Config) {
	t.Helper()

	templatesDir := t.TempDir()
	writeProjectTemplate(t, templatesDir)

	cfg := config.Default()
	cfg.Templates.Dir = templatesDir
	cfg.Output.BaseDir = t.TempDir()

	registry := backend.NewRegistry(backend.NewRunner(time.Minute, nil))
	if stub != nil {
		registry.Register(stub)
	}

	return New(cfg, registry, nil), cfg
}

// writeProjectTemplate lays out the minimal project template used by the
// orchestrator tests.
func writeProjectTemplate(t *testing.T, templatesDir string) {
	t.Helper()

	root := filepath.Join(templatesDir, "minimal")
	files := map[string]string{
		"fastkit.yaml": `id: minimal
dependencies:
  - name: fastapi
    constraint: ">=0.110.0"
  - name: uvicorn
test_command: ["python", "-m", "pytest", "tests"]
`,
		"README.md-tpl": "# <project_name>\n",
		"setup.py-tpl": `setup(name="<project_name>", version="<version>", description="<description> [fastkit templated]")
`,
		"requirements.txt-tpl": "fastapi\n",
		"src/__init__.py":      "",
		"src/main.py-tpl": `from fastapi import FastAPI

app = FastAPI(title="<project_name>")
`,
		"tests/__init__.py": "",
	}

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func demoRequest() Request {
	return Request{
		Metadata: project.Metadata{
			Name:        "demo",
			Author:      "Jane Doe",
			AuthorEmail: "jane@example.com",
			Description: "a demo service",
			Version:     "0.1.0",
		},
		Template: "minimal",
		Backend:  "stub",
	}
}

func TestCreate_FullRun(t *testing.T) {
	stub := &stubBackend{id: "stub"}
	o, cfg := testOrchestrator(t, stub)

	state, err := o.Create(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, StateDone, state.State)
	assert.True(t, state.Succeeded())
	assert.False(t, state.Partial)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, 1, stub.installCalls)
	assert.Equal(t, "source .venv/bin/activate", state.ActivationHint)

	dest := filepath.Join(cfg.Output.BaseDir, "demo")
	assert.Equal(t, dest, state.Destination)

	// Materialized files with markers stripped.
	assert.FileExists(t, filepath.Join(dest, "README.md"))
	assert.FileExists(t, filepath.Join(dest, "src", "main.py"))

	// Generated manifest overrides the template one and carries the
	// project name context.
	require.Contains(t, state.ManifestPaths, "requirements.txt")
	data, err := os.ReadFile(filepath.Join(dest, "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fastapi>=0.110.0\nuvicorn\n", string(data))
}

func TestCreate_UnknownBackendWritesNothing(t *testing.T) {
	o, cfg := testOrchestrator(t, nil)

	req := demoRequest()
	req.Backend = "nonexistent"

	state, err := o.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeUnsupportedBackend))
	assert.Equal(t, StateFailed, state.State)
	assert.Equal(t, StateCollectingInput, state.FailedAt)

	// No filesystem writes to the destination at all.
	assert.NoDirExists(t, filepath.Join(cfg.Output.BaseDir, "demo"))
}

func TestCreate_UnknownTemplate(t *testing.T) {
	o, _ := testOrchestrator(t, &stubBackend{id: "stub"})

	req := demoRequest()
	req.Template = "missing"

	state, err := o.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeTemplateNotFound))
	assert.Equal(t, StateFailed, state.State)
}

func TestCreate_InvalidMetadata(t *testing.T) {
	o, _ := testOrchestrator(t, &stubBackend{id: "stub"})

	req := demoRequest()
	req.Metadata.Name = "bad/name"

	_, err := o.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeInvalidName))
}

func TestCreate_MaterializeFailureRollsBack(t *testing.T) {
	stub := &stubBackend{id: "stub"}
	o, cfg := testOrchestrator(t, stub)

	// Occupied destination, no overwrite: fails in MATERIALIZING before
	// any write, the install step never runs.
	dest := filepath.Join(cfg.Output.BaseDir, "demo")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "occupied"), []byte("x"), 0o644))

	state, err := o.Create(context.Background(), demoRequest())
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeDestinationExists))
	assert.Equal(t, StateMaterializing, state.FailedAt)
	assert.False(t, state.Partial)
	assert.Zero(t, stub.installCalls)
}

func TestCreate_InstallFailureRetainsDestination(t *testing.T) {
	stub := &stubBackend{
		id: "stub",
		installResult: &backend.ExecutionResult{
			ExitCode: 1,
			Combined: "ERROR: No matching distribution found for fastapi\n",
		},
	}
	o, cfg := testOrchestrator(t, stub)

	state, err := o.Create(context.Background(), demoRequest())
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeDependencyInstall))

	// Retain-and-flag policy: the directory and manifest survive for
	// inspection and the run is reported failed.
	assert.Equal(t, StateFailed, state.State)
	assert.Equal(t, StateDependenciesInstalled, state.FailedAt)
	assert.True(t, state.Partial)
	assert.DirExists(t, filepath.Join(cfg.Output.BaseDir, "demo"))
	assert.FileExists(t, filepath.Join(cfg.Output.BaseDir, "demo", "requirements.txt"))

	// Full captured output stays available to the caller.
	require.NotNil(t, state.Install)
	assert.Contains(t, state.Install.Combined, "No matching distribution")
}

func TestCreate_EnvironmentFailureRetainsDestination(t *testing.T) {
	stub := &stubBackend{
		id:     "stub",
		envErr: fkerrors.EnvironmentCreate("stub", 1, "no python"),
	}
	o, cfg := testOrchestrator(t, stub)

	state, err := o.Create(context.Background(), demoRequest())
	require.Error(t, err)
	assert.True(t, fkerrors.HasCode(err, fkerrors.ErrCodeEnvironmentCreate))
	assert.Equal(t, StateEnvironmentCreated, state.FailedAt)
	assert.True(t, state.Partial)
	assert.DirExists(t, filepath.Join(cfg.Output.BaseDir, "demo"))
	assert.Zero(t, stub.installCalls)
}

func TestCreate_DefaultBackendFromConfig(t *testing.T) {
	stub := &stubBackend{id: "stub"}
	o, cfg := testOrchestrator(t, stub)
	cfg.Backend.Default = "stub"

	req := demoRequest()
	req.Backend = ""

	state, err := o.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, state.Succeeded())
	assert.Equal(t, 1, stub.installCalls)
}
