//go:build property
// +build property

package template

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// TestSubstituteProperties tests placeholder substitution properties
func TestSubstituteProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: when the context covers every placeholder in the input,
	// no placeholder form survives substitution
	properties.Property("covered placeholders fully resolve", prop.ForAll(
		func(name, author, version string) bool {
			ctx := project.SubstitutionContext{
				"project_name": name,
				"author":       author,
				"version":      version,
			}

			content := "name=<project_name> author=<author> version=<version>"
			rendered, unresolved := Substitute(content, ctx)

			if len(unresolved) != 0 {
				return false
			}

			return !strings.Contains(rendered, "<project_name>") &&
				!strings.Contains(rendered, "<author>") &&
				!strings.Contains(rendered, "<version>")
		},
		gen.RegexMatch(`^[a-z][a-z0-9-]{0,20}$`),
		gen.RegexMatch(`^[A-Za-z ]{1,20}$`),
		gen.RegexMatch(`^[0-9]\.[0-9]\.[0-9]$`),
	))

	// Property: substitution is deterministic
	properties.Property("substitution determinism", prop.ForAll(
		func(content string) bool {
			ctx := project.SubstitutionContext{"project_name": "demo"}

			first, firstUnresolved := Substitute(content, ctx)
			second, secondUnresolved := Substitute(content, ctx)

			if first != second {
				return false
			}
			if len(firstUnresolved) != len(secondUnresolved) {
				return false
			}
			for i := range firstUnresolved {
				if firstUnresolved[i] != secondUnresolved[i] {
					return false
				}
			}

			return true
		},
		gen.AnyString(),
	))

	// Property: content without the delimiter form passes through unchanged
	properties.Property("non-placeholder passthrough", prop.ForAll(
		func(content string) bool {
			if strings.ContainsAny(content, "<>") {
				return true // Skip content that could form a token
			}

			rendered, unresolved := Substitute(content, project.SubstitutionContext{
				"project_name": "demo",
			})

			return rendered == content && len(unresolved) == 0
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
