// Package template implements the template tree model and the materializer
// that renders a tree into a concrete project directory.
//
// A template is a directory mixing literal files and template files. A
// template file carries the "-tpl" filename suffix; its content and name are
// placeholder-substituted and the suffix is stripped on output. Literal
// files are copied byte-for-byte. Each template root carries a fastkit.yaml
// metadata file declaring its id, dependency list, and test command.
package template

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// Marker is the filename suffix identifying template files.
const Marker = "-tpl"

// MetaFilename is the per-template metadata file at the template root.
const MetaFilename = "fastkit.yaml"

// Meta is the parsed fastkit.yaml of a template.
type Meta struct {
	ID           string               `yaml:"id"`
	Description  string               `yaml:"description"`
	Dependencies []project.Dependency `yaml:"dependencies"`
	// TestCommand is the argv vector the dynamic inspection runs inside the
	// installed environment.
	TestCommand []string `yaml:"test_command"`
}

// Tree is a loaded, read-only template tree.
type Tree struct {
	// ID is the template identifier, normally the directory name.
	ID string
	// Root is the absolute path of the template directory.
	Root string
	// Meta is nil when the template carries no fastkit.yaml; the inspector
	// treats that as a rule violation, the materializer does not care.
	Meta *Meta
}

// Load opens the template with the given id under templatesDir.
func Load(templatesDir, id string) (*Tree, error) {
	root := filepath.Join(templatesDir, id)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fkerrors.TemplateNotFound(id).WithPath(root)
	}

	tree := &Tree{ID: id, Root: root}

	metaPath := filepath.Join(root, MetaFilename)
	if data, err := os.ReadFile(metaPath); err == nil {
		var meta Meta
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeTemplate,
				fkerrors.ErrCodeTemplateSyntax, "invalid "+MetaFilename).WithPath(metaPath)
		}
		if meta.ID == "" {
			meta.ID = id
		}
		tree.Meta = &meta
	}

	return tree, nil
}

// LoadAll loads every template directory under templatesDir, sorted by id.
func LoadAll(templatesDir string) ([]*Tree, error) {
	entries, err := os.ReadDir(templatesDir)
	if err != nil {
		return nil, fkerrors.TemplateNotFound(templatesDir).WithPath(templatesDir)
	}

	var trees []*Tree
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tree, err := Load(templatesDir, entry.Name())
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}

	sort.Slice(trees, func(i, j int) bool { return trees[i].ID < trees[j].ID })

	return trees, nil
}

// HasEntry reports whether a file or directory exists at the given path
// relative to the template root.
func (t *Tree) HasEntry(rel string) bool {
	_, err := os.Stat(filepath.Join(t.Root, rel))

	return err == nil
}

// ReadFile reads a file relative to the template root.
func (t *Tree) ReadFile(rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(t.Root, rel))
	if err != nil {
		return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to read template file").WithPath(rel)
	}

	return data, nil
}

// Entry is one node surfaced by Walk.
type Entry struct {
	// Rel is the path relative to the template root, slash-separated.
	Rel   string
	IsDir bool
	// IsTemplate is true when the filename carries the template marker.
	IsTemplate bool
	Mode       fs.FileMode
}

// Walk visits every node depth-first in a deterministic order, directories
// before their contents.
func (t *Tree) Walk(fn func(Entry) error) error {
	return filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "template walk failed").WithPath(path)
		}
		if path == t.Root {
			return nil
		}

		rel, err := filepath.Rel(t.Root, path)
		if err != nil {
			return fkerrors.Internal("template walk produced non-relative path", err)
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to stat template entry").WithPath(rel)
		}

		return fn(Entry{
			Rel:        rel,
			IsDir:      d.IsDir(),
			IsTemplate: !d.IsDir() && strings.HasSuffix(d.Name(), Marker),
			Mode:       info.Mode(),
		})
	})
}

// StripMarker removes the template suffix from a filename.
func StripMarker(name string) string {
	return strings.TrimSuffix(name, Marker)
}
