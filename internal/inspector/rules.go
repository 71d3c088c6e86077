// Package inspector implements the template validation pipeline: a fixed
// rule set applied to one or many templates, producing a structured report.
package inspector

import (
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/template"
)

// FrameworkDependency is the mandatory core framework every template must
// declare.
const FrameworkDependency = "fastapi"

// GeneratedMarker is the mandatory marker identifying a package-setup
// description as generated by fastkit.
const GeneratedMarker = "[fastkit templated]"

// Scope distinguishes rules requiring only the template tree from rules
// requiring a materialized, installed instance.
type Scope string

const (
	ScopeStatic  Scope = "static"
	ScopeDynamic Scope = "dynamic"
)

// Violation is one failed rule with its message. Violations are
// accumulated, never fatal on their own.
type Violation struct {
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message" yaml:"message"`
}

// Rule is a static predicate over a template tree.
type Rule struct {
	ID    string
	Scope Scope
	Check func(tree *template.Tree) []Violation
}

// requiredEntries are the top-level entries every template must carry:
// a tests root, the dependency-manifest template, the package-setup
// template, and the documentation template.
var requiredEntries = []string{
	"tests",
	"requirements.txt-tpl",
	"setup.py-tpl",
	"README.md-tpl",
}

// StaticRules returns the fixed static rule set, in execution order.
func StaticRules() []Rule {
	return []Rule{
		{ID: "required-entries", Scope: ScopeStatic, Check: checkRequiredEntries},
		{ID: "marker-shadowing", Scope: ScopeStatic, Check: checkMarkerShadowing},
		{ID: "declared-dependencies", Scope: ScopeStatic, Check: checkDeclaredDependencies},
		{ID: "setup-description-marker", Scope: ScopeStatic, Check: checkSetupMarker},
		{ID: "entrypoint-framework", Scope: ScopeStatic, Check: checkEntrypoint},
	}
}

func checkRequiredEntries(tree *template.Tree) []Violation {
	var violations []Violation
	for _, entry := range requiredEntries {
		if !tree.HasEntry(entry) {
			violations = append(violations, Violation{
				Rule:    "required-entries",
				Message: "missing required entry: " + entry,
			})
		}
	}
	if tree.Meta == nil {
		violations = append(violations, Violation{
			Rule:    "required-entries",
			Message: "missing template metadata: " + template.MetaFilename,
		})
	}

	return violations
}

// checkMarkerShadowing flags files present both as a plain file and as a
// template-marked variant; only the marked variant is permitted.
func checkMarkerShadowing(tree *template.Tree) []Violation {
	seen := map[string]bool{}
	_ = tree.Walk(func(e template.Entry) error {
		if !e.IsDir {
			seen[e.Rel] = true
		}
		return nil
	})

	var violations []Violation
	for rel := range seen {
		if !strings.HasSuffix(rel, template.Marker) {
			continue
		}
		if seen[template.StripMarker(rel)] {
			violations = append(violations, Violation{
				Rule:    "marker-shadowing",
				Message: "both template and plain variant exist: " + template.StripMarker(rel),
			})
		}
	}

	return violations
}

// checkDeclaredDependencies verifies the mandatory framework dependency is
// declared everywhere dependencies are declared: the template metadata,
// the manifest template, and the package-setup template.
func checkDeclaredDependencies(tree *template.Tree) []Violation {
	var violations []Violation

	if tree.Meta != nil {
		found := false
		for _, dep := range tree.Meta.Dependencies {
			if dep.Name == FrameworkDependency {
				found = true
				break
			}
		}
		if !found {
			violations = append(violations, Violation{
				Rule:    "declared-dependencies",
				Message: template.MetaFilename + " does not declare " + FrameworkDependency,
			})
		}
	}

	if names := manifestTemplateDependencies(tree); names != nil {
		if !names[FrameworkDependency] {
			violations = append(violations, Violation{
				Rule:    "declared-dependencies",
				Message: "manifest template does not declare " + FrameworkDependency,
			})
		}
	}

	if data, err := tree.ReadFile("setup.py-tpl"); err == nil {
		if !strings.Contains(string(data), FrameworkDependency) {
			violations = append(violations, Violation{
				Rule:    "declared-dependencies",
				Message: "setup.py-tpl does not reference " + FrameworkDependency,
			})
		}
	}

	return violations
}

// manifestTemplateDependencies parses dependency names out of whichever
// manifest template the tree carries. Returns nil when no manifest
// template exists (required-entries already covers that).
func manifestTemplateDependencies(tree *template.Tree) map[string]bool {
	if data, err := tree.ReadFile("requirements.txt-tpl"); err == nil {
		names := map[string]bool{}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
				continue
			}
			names[requirementName(line)] = true
		}
		return names
	}

	if data, err := tree.ReadFile("pyproject.toml-tpl"); err == nil {
		var doc struct {
			Project struct {
				Dependencies []string `toml:"dependencies"`
			} `toml:"project"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return map[string]bool{}
		}
		names := map[string]bool{}
		for _, dep := range doc.Project.Dependencies {
			names[requirementName(dep)] = true
		}
		return names
	}

	return nil
}

// requirementName strips the version constraint from a requirement line.
func requirementName(line string) string {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '=', '>', '<', '~', '!', '[', ' ', ';':
			return strings.TrimSpace(line[:i])
		}
	}

	return line
}

func checkSetupMarker(tree *template.Tree) []Violation {
	data, err := tree.ReadFile("setup.py-tpl")
	if err != nil {
		return nil
	}
	if !strings.Contains(string(data), GeneratedMarker) {
		return []Violation{{
			Rule:    "setup-description-marker",
			Message: "setup.py-tpl description does not carry " + GeneratedMarker,
		}}
	}

	return nil
}

// checkEntrypoint verifies the designated entrypoint template imports and
// instantiates the framework application symbol.
func checkEntrypoint(tree *template.Tree) []Violation {
	var data []byte
	var path string
	for _, candidate := range []string{"src/main.py-tpl", "main.py-tpl"} {
		if d, err := tree.ReadFile(candidate); err == nil {
			data, path = d, candidate
			break
		}
	}
	if data == nil {
		return []Violation{{
			Rule:    "entrypoint-framework",
			Message: "no entrypoint template (src/main.py-tpl or main.py-tpl)",
		}}
	}

	var violations []Violation
	content := string(data)
	if !strings.Contains(content, "from fastapi import FastAPI") {
		violations = append(violations, Violation{
			Rule:    "entrypoint-framework",
			Message: path + " does not import FastAPI",
		})
	}
	if !strings.Contains(content, "FastAPI(") {
		violations = append(violations, Violation{
			Rule:    "entrypoint-framework",
			Message: path + " does not instantiate FastAPI",
		})
	}

	return violations
}
