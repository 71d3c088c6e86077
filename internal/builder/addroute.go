package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/template"
)

// AddRoute adds a new route package to an already-materialized project:
// a scaffold subtree under src/<route_name>/ plus a registration appended
// to the src/main.py aggregator.
//
// The operation is atomic: either every new file is written and the
// aggregator edited, or the project is reverted to its pre-operation
// byte-identical state. It never touches dependency manifests or backends.
func (o *Orchestrator) AddRoute(ctx context.Context, projectRoot, routeName string) error {
	if err := project.ValidateName("route", routeName); err != nil {
		return err
	}

	aggregator := filepath.Join(projectRoot, "src", "main.py")
	original, err := os.ReadFile(aggregator)
	if err != nil {
		return fkerrors.ConfigInvalid("project has no src/main.py aggregator: " + projectRoot)
	}

	if _, err := os.Stat(filepath.Join(projectRoot, "src", routeName, "router.py")); err == nil {
		return fkerrors.DestinationExists(filepath.Join(projectRoot, "src", routeName))
	}

	subst := project.SubstitutionContext{
		"route_name":       routeName,
		"route_name_class": routeClassName(routeName),
	}

	tree, cleanup, err := o.routeScaffoldTree()
	if err != nil {
		return err
	}
	defer cleanup()

	// The scaffold materializes into the existing src/ directory, so the
	// overwrite guard must be bypassed; rollback inside the materializer
	// still removes exactly the files this call wrote.
	result, err := o.materializer.Materialize(ctx, tree,
		filepath.Join(projectRoot, "src"), subst, template.Options{Overwrite: true})
	if err != nil {
		return err
	}

	registration, unresolved := template.Substitute(routeRegistration, subst)
	if len(unresolved) > 0 {
		if rbErr := o.revertRoute(result, aggregator, original); rbErr != nil {
			return rbErr
		}
		return fkerrors.TemplateSyntax("route registration", unresolved)
	}

	if err := appendToFile(aggregator, registration); err != nil {
		if rbErr := o.revertRoute(result, aggregator, original); rbErr != nil {
			return rbErr
		}
		return err
	}

	o.logger.Info(ctx, "Route added",
		"project", projectRoot,
		"route", routeName,
		"files", len(result.FilesWritten))

	return nil
}

// routeScaffoldTree stages the built-in route scaffold as a temporary
// template tree for the materializer.
func (o *Orchestrator) routeScaffoldTree() (*template.Tree, func(), error) {
	staging, err := os.MkdirTemp("", "fastkit-route-")
	if err != nil {
		return nil, nil, fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to stage route scaffold")
	}
	cleanup := func() { _ = os.RemoveAll(staging) }

	root := filepath.Join(staging, "route")
	for rel, content := range routeScaffoldFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			cleanup()
			return nil, nil, fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to stage route scaffold")
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			cleanup()
			return nil, nil, fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to stage route scaffold")
		}
	}

	tree, err := template.Load(staging, "route")
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return tree, cleanup, nil
}

// revertRoute restores the pre-operation state after a partial add-route.
// A revert that cannot complete leaves the project in neither its old nor
// its new state, so any failure here is fatal and surfaced.
func (o *Orchestrator) revertRoute(result *template.Result, aggregator string, original []byte) error {
	for i := len(result.FilesWritten) - 1; i >= 0; i-- {
		if err := os.Remove(result.FilesWritten[i]); err != nil && !os.IsNotExist(err) {
			return fkerrors.RollbackFailed(result.FilesWritten[i], err)
		}
	}
	for i := len(result.DirsCreated) - 1; i >= 0; i-- {
		if err := os.Remove(result.DirsCreated[i]); err != nil && !os.IsNotExist(err) {
			return fkerrors.RollbackFailed(result.DirsCreated[i], err)
		}
	}
	if err := os.WriteFile(aggregator, original, 0o644); err != nil {
		return fkerrors.RollbackFailed(aggregator, err)
	}

	return nil
}

func appendToFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to edit aggregator").WithPath(path)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to edit aggregator").WithPath(path)
	}
	if err := f.Close(); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to edit aggregator").WithPath(path)
	}

	return nil
}

// routeClassName turns a route identifier into a Python class name:
// "user-items" becomes "UserItems".
func routeClassName(routeName string) string {
	parts := strings.FieldsFunc(routeName, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}

	return b.String()
}
