// Package manifest turns a dependency list plus project metadata into
// backend-specific manifest files.
//
// Generation is a pure function: no I/O, no randomness, no timestamps.
// Identical inputs produce byte-identical output, dependency ordering is a
// stable sort by name, and every required key of the target backend's
// schema is emitted or generation fails.
package manifest

import (
	"strings"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// requiresPython is the interpreter constraint emitted into structured
// manifests.
const requiresPython = ">=3.12"

// File is one generated manifest file.
type File struct {
	// Path is relative to the project root.
	Path    string
	Content []byte
}

// Manifest is the set of files a backend's installer consumes.
type Manifest struct {
	Backend string
	Files   []File
}

// Paths returns the relative paths of all generated files.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Files))
	for i, f := range m.Files {
		paths[i] = f.Path
	}

	return paths
}

// Generate produces the manifest for the given backend descriptor.
func Generate(deps []project.Dependency, meta project.Metadata, desc backend.Descriptor) (*Manifest, error) {
	if !desc.Has(backend.CapGenerateManifest) {
		return nil, fkerrors.ManifestGeneration(desc.ID, "backend does not support manifest generation")
	}
	if err := validateInputs(deps, meta, desc); err != nil {
		return nil, err
	}

	sorted := project.SortDependencies(deps)
	runtime, dev := splitSections(sorted)

	switch desc.ID {
	case "pip":
		return pipManifest(runtime, dev), nil
	case "uv":
		return uvManifest(runtime, dev, meta)
	case "pdm":
		return pdmManifest(runtime, dev, meta)
	case "poetry":
		return poetryManifest(runtime, dev, meta)
	default:
		return nil, fkerrors.UnsupportedBackend(desc.ID)
	}
}

// validateInputs enforces each backend's minimal required-key set up front:
// a missing key is a generator bug, not an installer runtime surprise.
func validateInputs(deps []project.Dependency, meta project.Metadata, desc backend.Descriptor) error {
	if meta.Name == "" {
		return fkerrors.ManifestGeneration(desc.ID, "project name is required")
	}
	if meta.Version == "" {
		return fkerrors.ManifestGeneration(desc.ID, "project version is required")
	}

	// The structured formats carry a full project-metadata table.
	if desc.ID != "pip" {
		if meta.Description == "" {
			return fkerrors.ManifestGeneration(desc.ID, "project description is required")
		}
		if meta.Author == "" {
			return fkerrors.ManifestGeneration(desc.ID, "project author is required")
		}
	}

	for _, dep := range deps {
		if dep.Name == "" {
			return fkerrors.ManifestGeneration(desc.ID, "dependency with empty name")
		}
		if strings.ContainsAny(dep.Name, " \t\n") {
			return fkerrors.ManifestGeneration(desc.ID, "dependency name contains whitespace: "+dep.Name)
		}
	}

	return nil
}

func splitSections(deps []project.Dependency) (runtime, dev []project.Dependency) {
	for _, dep := range deps {
		if dep.Section == project.SectionDev {
			dev = append(dev, dep)
		} else {
			runtime = append(runtime, dep)
		}
	}

	return runtime, dev
}

// requirementLine renders one dependency in requirements syntax,
// e.g. "fastapi>=0.110.0" or a bare "uvicorn".
func requirementLine(dep project.Dependency) string {
	return dep.Name + dep.Constraint
}

func requirementStrings(deps []project.Dependency) []string {
	// Non-nil so structured encoders emit an empty array rather than
	// dropping the key.
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		lines = append(lines, requirementLine(dep))
	}

	return lines
}
