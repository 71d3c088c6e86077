// Package backend implements the package-manager backend abstraction: a
// small interface with one concrete implementation per supported Python
// package manager, selected through a registry keyed by identifier.
//
// Backends are mutually exclusive per run. Each install spawns exactly one
// external process, bounded by the runner's timeout.
package backend

import (
	"context"
	"strings"
)

// Capability names one operation a backend supports.
type Capability string

const (
	CapGenerateManifest  Capability = "generate_manifest"
	CapCreateEnvironment Capability = "create_environment"
	CapInstall           Capability = "install"
	CapActivationHint    Capability = "activation_hint"
)

// Descriptor identifies a backend and its capability set.
type Descriptor struct {
	ID           string
	Capabilities []Capability
	// ManifestFiles are the manifest filenames this backend's installer
	// consumes, in generation order. The first entry is the primary
	// manifest.
	ManifestFiles []string
}

// Has reports whether the descriptor carries a capability.
func (d Descriptor) Has(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}

	return false
}

func allCapabilities() []Capability {
	return []Capability{
		CapGenerateManifest,
		CapCreateEnvironment,
		CapInstall,
		CapActivationHint,
	}
}

// Environment is the handle returned by CreateEnvironment.
type Environment struct {
	// ProjectRoot is the materialized project directory the environment
	// belongs to.
	ProjectRoot string
	// Path is the environment directory, empty for backends that manage
	// their own environment location.
	Path string
}

// ExecutionResult is the typed outcome of one subprocess call. The full
// capture is always retained; only error messages truncate it.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Combined interleaves stdout and stderr in arrival order.
	Combined string
}

// OutputTail returns the last n lines of the combined output.
func (r *ExecutionResult) OutputTail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Combined, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "\n")
}

// Backend is one package-manager strategy.
type Backend interface {
	// Name returns the registry identifier.
	Name() string
	// Descriptor returns the backend's descriptor.
	Descriptor() Descriptor
	// CreateEnvironment prepares an isolated environment under projectRoot.
	CreateEnvironment(ctx context.Context, projectRoot string) (*Environment, error)
	// Install resolves and installs the dependencies declared by the
	// manifests already present in env.ProjectRoot. Spawns exactly one
	// external process.
	Install(ctx context.Context, env *Environment) (*ExecutionResult, error)
	// ActivationHint returns the shell command a user runs to enter the
	// environment.
	ActivationHint(env *Environment) string
	// TestCommand adapts a template's declared test argv so it executes
	// inside the environment.
	TestCommand(env *Environment, argv []string) []string
}
