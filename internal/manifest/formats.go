package manifest

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// pipManifest renders the flat pinned-list format: one requirement per
// line, sorted by name, dev requirements in a separate file only when
// present.
func pipManifest(runtime, dev []project.Dependency) *Manifest {
	m := &Manifest{Backend: "pip"}

	var buf bytes.Buffer
	for _, dep := range runtime {
		buf.WriteString(requirementLine(dep))
		buf.WriteByte('\n')
	}
	m.Files = append(m.Files, File{Path: "requirements.txt", Content: buf.Bytes()})

	if len(dev) > 0 {
		var devBuf bytes.Buffer
		devBuf.WriteString("-r requirements.txt\n")
		for _, dep := range dev {
			devBuf.WriteString(requirementLine(dep))
			devBuf.WriteByte('\n')
		}
		m.Files = append(m.Files, File{Path: "requirements-dev.txt", Content: devBuf.Bytes()})
	}

	return m
}

// PEP 621 [project] table shared by the uv and pdm documents.
type projectAuthor struct {
	Name  string `toml:"name"`
	Email string `toml:"email,omitempty"`
}

type projectTable struct {
	Name           string          `toml:"name"`
	Version        string          `toml:"version"`
	Description    string          `toml:"description"`
	Authors        []projectAuthor `toml:"authors,inline"`
	RequiresPython string          `toml:"requires-python"`
	Dependencies   []string        `toml:"dependencies"`
}

type buildSystem struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
}

func pep621Project(runtime []project.Dependency, meta project.Metadata) projectTable {
	return projectTable{
		Name:           meta.Name,
		Version:        meta.Version,
		Description:    meta.Description,
		Authors:        []projectAuthor{{Name: meta.Author, Email: meta.AuthorEmail}},
		RequiresPython: requiresPython,
		Dependencies:   requirementStrings(runtime),
	}
}

type uvDocument struct {
	Project          projectTable        `toml:"project"`
	DependencyGroups map[string][]string `toml:"dependency-groups,omitempty"`
	Tool             struct {
		Uv struct {
			Managed bool `toml:"managed"`
		} `toml:"uv"`
	} `toml:"tool"`
}

func uvManifest(runtime, dev []project.Dependency, meta project.Metadata) (*Manifest, error) {
	doc := uvDocument{Project: pep621Project(runtime, meta)}
	doc.Tool.Uv.Managed = true
	if len(dev) > 0 {
		doc.DependencyGroups = map[string][]string{"dev": requirementStrings(dev)}
	}

	return encodeToml("uv", doc)
}

type pdmDocument struct {
	Project projectTable `toml:"project"`
	Tool    struct {
		Pdm struct {
			Distribution    bool                `toml:"distribution"`
			DevDependencies map[string][]string `toml:"dev-dependencies,omitempty"`
		} `toml:"pdm"`
	} `toml:"tool"`
	BuildSystem buildSystem `toml:"build-system"`
}

func pdmManifest(runtime, dev []project.Dependency, meta project.Metadata) (*Manifest, error) {
	doc := pdmDocument{Project: pep621Project(runtime, meta)}
	doc.BuildSystem = buildSystem{
		Requires:     []string{"pdm-backend"},
		BuildBackend: "pdm.backend",
	}
	if len(dev) > 0 {
		doc.Tool.Pdm.DevDependencies = map[string][]string{"dev": requirementStrings(dev)}
	}

	return encodeToml("pdm", doc)
}

type poetrySection struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	Description  string            `toml:"description"`
	Authors      []string          `toml:"authors"`
	Dependencies map[string]string `toml:"dependencies"`
	Group        map[string]struct {
		Dependencies map[string]string `toml:"dependencies"`
	} `toml:"group,omitempty"`
}

type poetryDocument struct {
	Tool struct {
		Poetry poetrySection `toml:"poetry"`
	} `toml:"tool"`
	BuildSystem buildSystem `toml:"build-system"`
}

func poetryManifest(runtime, dev []project.Dependency, meta project.Metadata) (*Manifest, error) {
	section := poetrySection{
		Name:        meta.Name,
		Version:     meta.Version,
		Description: meta.Description,
		Authors:     []string{poetryAuthor(meta)},
		Dependencies: map[string]string{
			"python": "^3.12",
		},
	}
	for _, dep := range runtime {
		section.Dependencies[dep.Name] = poetryConstraint(dep)
	}
	if len(dev) > 0 {
		group := map[string]string{}
		for _, dep := range dev {
			group[dep.Name] = poetryConstraint(dep)
		}
		section.Group = map[string]struct {
			Dependencies map[string]string `toml:"dependencies"`
		}{
			"dev": {Dependencies: group},
		}
	}

	doc := poetryDocument{}
	doc.Tool.Poetry = section
	doc.BuildSystem = buildSystem{
		Requires:     []string{"poetry-core"},
		BuildBackend: "poetry.core.masonry.api",
	}

	return encodeToml("poetry", doc)
}

func poetryAuthor(meta project.Metadata) string {
	if meta.AuthorEmail == "" {
		return meta.Author
	}

	return meta.Author + " <" + meta.AuthorEmail + ">"
}

// poetryConstraint translates a declared constraint into poetry's dialect:
// none becomes "*", a bare version becomes a caret constraint, and anything
// already carrying an operator passes through verbatim.
func poetryConstraint(dep project.Dependency) string {
	c := dep.Constraint
	if c == "" {
		return "*"
	}
	if c[0] >= '0' && c[0] <= '9' {
		return "^" + c
	}

	return c
}

// encodeToml marshals a document; go-toml orders struct fields by
// declaration and map keys lexically, keeping output deterministic.
func encodeToml(backendID string, doc interface{}) (*Manifest, error) {
	data, err := toml.Marshal(doc)
	if err != nil {
		return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeManifest,
			fkerrors.ErrCodeManifestGeneration, "failed to encode pyproject.toml for "+backendID)
	}

	return &Manifest{
		Backend: backendID,
		Files:   []File{{Path: "pyproject.toml", Content: data}},
	}, nil
}
