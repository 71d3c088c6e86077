//go:build property
// +build property

package manifest

import (
	"bytes"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// TestManifestProperties tests generator determinism across backends
func TestManifestProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	registry := backend.NewRegistry(backend.NewRunner(time.Minute, nil))

	meta := project.Metadata{
		Name:        "demo",
		Author:      "Jane Doe",
		AuthorEmail: "jane@example.com",
		Description: "a demo service",
		Version:     "0.1.0",
	}

	// Property: generate called twice with identical arguments produces
	// byte-identical manifest content for every backend
	properties.Property("generation idempotence", prop.ForAll(
		func(names []string, backendID string) bool {
			deps := make([]project.Dependency, 0, len(names))
			for i, name := range names {
				section := project.SectionRuntime
				if i%2 == 1 {
					section = project.SectionDev
				}
				deps = append(deps, project.Dependency{Name: name, Section: section})
			}

			b, err := registry.Get(backendID)
			if err != nil {
				return false
			}

			first, err1 := Generate(deps, meta, b.Descriptor())
			second, err2 := Generate(deps, meta, b.Descriptor())
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}

			if len(first.Files) != len(second.Files) {
				return false
			}
			for i := range first.Files {
				if first.Files[i].Path != second.Files[i].Path {
					return false
				}
				if !bytes.Equal(first.Files[i].Content, second.Files[i].Content) {
					return false
				}
			}

			return true
		},
		gen.SliceOfN(6, gen.RegexMatch(`^[a-z][a-z0-9-]{0,15}$`)),
		gen.OneConstOf("pip", "uv", "pdm", "poetry"),
	))

	properties.TestingRun(t)
}
