package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/logging"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// Materializer renders template trees into concrete directories. It touches
// the filesystem only: no network, no subprocesses.
type Materializer struct {
	exclude []string
	logger  logging.Logger
}

// NewMaterializer creates a materializer. The exclude patterns are doublestar
// globs relative to the template root; the template metadata file is always
// excluded.
func NewMaterializer(exclude []string, logger logging.Logger) *Materializer {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Materializer{
		exclude: exclude,
		logger:  logger.WithComponent("materializer"),
	}
}

// Options controls a single materialization call.
type Options struct {
	// Overwrite permits writing into an existing non-empty destination.
	Overwrite bool
	// KeepPartial disables rollback of already-written files on failure,
	// for diagnostics.
	KeepPartial bool
}

// Result describes what a materialization call wrote.
type Result struct {
	Destination  string
	FilesWritten []string
	DirsCreated  []string
}

// Materialize renders the tree into destRoot. Directories are recreated
// first, then files, depth-first. Template files are substituted and have
// their marker stripped; literal files are copied verbatim with the
// executable bit preserved. On failure every file written during this call
// is removed (best effort) unless Options.KeepPartial is set; a cleanup
// failure surfaces as RollbackFailedError.
func (m *Materializer) Materialize(ctx context.Context, tree *Tree, destRoot string, subst project.SubstitutionContext, opts Options) (*Result, error) {
	if err := m.checkDestination(destRoot, opts.Overwrite); err != nil {
		return nil, err
	}

	result := &Result{Destination: destRoot}
	createdRoot := false

	if _, err := os.Stat(destRoot); os.IsNotExist(err) {
		if err := os.MkdirAll(destRoot, 0o755); err != nil {
			return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to create destination").WithPath(destRoot)
		}
		createdRoot = true
	}

	err := tree.Walk(func(entry Entry) error {
		if err := ctx.Err(); err != nil {
			return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "materialization canceled")
		}
		if m.excluded(entry.Rel, entry.IsDir) {
			if entry.IsDir {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir {
			return m.writeDir(tree, entry, destRoot, subst, result)
		}

		return m.writeFile(tree, entry, destRoot, subst, result)
	})
	if err != nil {
		if opts.KeepPartial {
			m.logger.Warn(ctx, err, "Materialization failed, keeping partial output",
				"destination", destRoot)
			return result, err
		}
		if rbErr := m.rollback(result, destRoot, createdRoot); rbErr != nil {
			return result, rbErr
		}
		return nil, err
	}

	m.logger.Debug(ctx, "Materialization complete",
		"destination", destRoot,
		"files", len(result.FilesWritten))

	return result, nil
}

// checkDestination is the overwrite guard: an existing non-empty destination
// fails before anything is written.
func (m *Materializer) checkDestination(destRoot string, overwrite bool) error {
	info, err := os.Stat(destRoot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to stat destination").WithPath(destRoot)
	}
	if !info.IsDir() {
		return fkerrors.DestinationExists(destRoot)
	}
	if overwrite {
		return nil
	}

	entries, err := os.ReadDir(destRoot)
	if err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to read destination").WithPath(destRoot)
	}
	if len(entries) > 0 {
		return fkerrors.DestinationExists(destRoot)
	}

	return nil
}

func (m *Materializer) writeDir(tree *Tree, entry Entry, destRoot string, subst project.SubstitutionContext, result *Result) error {
	rel, err := m.outputPath(entry.Rel, subst)
	if err != nil {
		return err
	}

	dest := filepath.Join(destRoot, filepath.FromSlash(rel))
	if _, statErr := os.Stat(dest); os.IsNotExist(statErr) {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
				fkerrors.ErrCodeInternal, "failed to create directory").WithPath(dest)
		}
		result.DirsCreated = append(result.DirsCreated, dest)
	}

	return nil
}

func (m *Materializer) writeFile(tree *Tree, entry Entry, destRoot string, subst project.SubstitutionContext, result *Result) error {
	data, err := tree.ReadFile(entry.Rel)
	if err != nil {
		return err
	}

	rel := entry.Rel
	if entry.IsTemplate {
		rendered, unresolved := Substitute(string(data), subst)
		if len(unresolved) > 0 {
			// No partial write for this file.
			return fkerrors.TemplateSyntax(entry.Rel, unresolved)
		}
		data = []byte(rendered)
		rel = StripMarker(rel)
	}

	rel, err = m.outputPath(rel, subst)
	if err != nil {
		return err
	}

	dest := filepath.Join(destRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to create parent directory").WithPath(dest)
	}

	mode := os.FileMode(0o644)
	if entry.Mode&0o111 != 0 {
		mode = 0o755
	}
	if err := os.WriteFile(dest, data, mode); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to write file").WithPath(dest)
	}
	// WriteFile does not chmod pre-existing files; overwrite runs must still
	// converge on the same mode.
	if err := os.Chmod(dest, mode); err != nil {
		return fkerrors.Wrap(err, fkerrors.ErrorTypeIO,
			fkerrors.ErrCodeInternal, "failed to set file mode").WithPath(dest)
	}

	result.FilesWritten = append(result.FilesWritten, dest)

	return nil
}

// outputPath substitutes placeholders in a relative output path.
func (m *Materializer) outputPath(rel string, subst project.SubstitutionContext) (string, error) {
	rendered, unresolved := Substitute(rel, subst)
	if len(unresolved) > 0 {
		return "", fkerrors.TemplateSyntax(rel, unresolved)
	}
	if strings.Contains(rendered, "..") {
		return "", fkerrors.InvalidName("output path", rendered, "must not contain traversal sequences")
	}

	return rendered, nil
}

func (m *Materializer) excluded(rel string, isDir bool) bool {
	if rel == MetaFilename {
		return true
	}
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if isDir && strings.HasSuffix(pattern, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
				return true
			}
		}
	}

	return false
}

// rollback removes everything this call created, deepest entries first.
func (m *Materializer) rollback(result *Result, destRoot string, createdRoot bool) error {
	if createdRoot {
		if err := os.RemoveAll(destRoot); err != nil {
			return fkerrors.RollbackFailed(destRoot, err)
		}
		return nil
	}

	for i := len(result.FilesWritten) - 1; i >= 0; i-- {
		if err := os.Remove(result.FilesWritten[i]); err != nil && !os.IsNotExist(err) {
			return fkerrors.RollbackFailed(result.FilesWritten[i], err)
		}
	}
	for i := len(result.DirsCreated) - 1; i >= 0; i-- {
		// Only directories this call created; they may legitimately be
		// non-empty if a later failure interleaved, so errors here are of
		// the best-effort kind except for permission failures.
		if err := os.Remove(result.DirsCreated[i]); err != nil && !os.IsNotExist(err) {
			if !isDirNotEmpty(err) {
				return fkerrors.RollbackFailed(result.DirsCreated[i], err)
			}
		}
	}

	return nil
}

func isDirNotEmpty(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY)
}
