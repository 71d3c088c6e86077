// Package project defines the core data model shared by the materializer,
// manifest generator, and orchestrator: project metadata, dependency
// specifications, and the substitution context used to render templates.
package project

import (
	"sort"
	"strings"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

// Section identifies which dependency group a spec belongs to.
type Section string

const (
	SectionRuntime Section = "runtime"
	SectionDev     Section = "dev"
)

// Metadata describes the project being created. Name doubles as the
// destination directory name and the name injected into manifests.
type Metadata struct {
	Name        string `yaml:"name"`
	Author      string `yaml:"author"`
	AuthorEmail string `yaml:"author_email"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Validate checks the invariants the rest of the pipeline relies on.
func (m Metadata) Validate() error {
	if err := ValidateName("project", m.Name); err != nil {
		return err
	}
	if m.Version == "" {
		return fkerrors.ConfigInvalid("project version must not be empty")
	}

	return nil
}

// Dependency is a single dependency declaration. Collected once per
// project-creation request and never mutated afterwards.
type Dependency struct {
	Name       string  `yaml:"name"`
	Constraint string  `yaml:"constraint,omitempty"`
	Section    Section `yaml:"section,omitempty"`
}

// SortDependencies orders specs by name, dev section after runtime on ties.
// Manifest output depends on this being stable.
func SortDependencies(deps []Dependency) []Dependency {
	sorted := make([]Dependency, len(deps))
	copy(sorted, deps)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Section == SectionRuntime && sorted[j].Section == SectionDev
	})

	return sorted
}

// SubstitutionContext maps placeholder keys to replacement values.
type SubstitutionContext map[string]string

// NewSubstitutionContext derives the standard context from metadata plus
// arbitrary extension keys (feature flags, route names). Extension keys
// override nothing: a metadata key collision is a caller bug, so metadata
// wins.
func NewSubstitutionContext(meta Metadata, extra map[string]string) SubstitutionContext {
	ctx := make(SubstitutionContext, len(extra)+6)
	for k, v := range extra {
		ctx[k] = v
	}

	ctx["project_name"] = meta.Name
	ctx["folder_name"] = meta.Name
	ctx["author"] = meta.Author
	ctx["author_email"] = meta.AuthorEmail
	ctx["description"] = meta.Description
	ctx["version"] = meta.Version

	return ctx
}

// ValidateName enforces the identifier-like rule for project and route
// names: non-empty, no path separators, no traversal, letters, digits,
// hyphen and underscore only, starting with a letter.
func ValidateName(kind, name string) error {
	if name == "" {
		return fkerrors.InvalidName(kind, name, "must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fkerrors.InvalidName(kind, name, "must not contain path separators")
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fkerrors.InvalidName(kind, name, "must not contain traversal sequences")
	}
	if !isLetter(name[0]) {
		return fkerrors.InvalidName(kind, name, "must start with a letter")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !isDigit(c) && c != '-' && c != '_' {
			return fkerrors.InvalidName(kind, name, "must contain only letters, digits, '-' and '_'")
		}
	}

	return nil
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
