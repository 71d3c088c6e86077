package inspector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/backend"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/config"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/logging"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/manifest"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/template"
)

// CheckState tracks one template through the inspection pipeline.
type CheckState string

const (
	StatePending      CheckState = "PENDING"
	StateStaticCheck  CheckState = "STATIC_CHECK"
	StateDynamicCheck CheckState = "DYNAMIC_CHECK"
	StatePassed       CheckState = "PASSED"
	StateFailed       CheckState = "FAILED"
)

// Mode selects how deep an inspection goes.
type Mode string

const (
	// ModeStatic runs only the static rule set.
	ModeStatic Mode = "static"
	// ModeDynamic additionally materializes the template into a disposable
	// directory, installs its dependencies, and runs its declared test
	// command. Requires the default backend's tooling on the host.
	ModeDynamic Mode = "dynamic"
)

// Options controls one inspection batch. Verbosity affects report detail
// only, never which rules run.
type Options struct {
	Mode    Mode
	Verbose bool
	// Stream, when non-nil, receives one JSON line per template as soon as
	// its check completes. The batch report is still emitted at the end.
	Stream *StreamWriter
}

// Result is the outcome for one template.
type Result struct {
	Template   string
	State      CheckState
	Passed     bool
	Violations []Violation
	// PassedRules lists the rules that passed, populated only in verbose
	// mode.
	PassedRules []string
}

// Inspector checks templates against the rule set. One inspector is safe
// for a single batch at a time.
type Inspector struct {
	cfg          *config.Config
	registry     *backend.Registry
	materializer *template.Materializer
	testRunner   *backend.Runner
	logger       logging.Logger
	rules        []Rule
}

// New creates an inspector. The registry supplies the backend used by
// dynamic checks.
func New(cfg *config.Config, registry *backend.Registry, logger logging.Logger) *Inspector {
	if logger == nil {
		logger = logging.NewNop()
	}
	testRunner := backend.NewRunner(cfg.Inspector.TestTimeout, logger)
	testRunner.Allow("pytest")

	return &Inspector{
		cfg:          cfg,
		registry:     registry,
		materializer: template.NewMaterializer(cfg.Templates.ExcludePatterns, logger),
		testRunner:   testRunner,
		logger:       logger.WithComponent("inspector"),
		rules:        StaticRules(),
	}
}

// Inspect checks the given template ids under templatesDir, all templates
// when ids is empty. Templates are checked in isolation: one failing or
// even panicking check never stops the batch, it only marks that template
// failed. The report is returned once every template completed.
func (i *Inspector) Inspect(ctx context.Context, templatesDir string, ids []string, opts Options) (*Report, error) {
	if len(ids) == 0 {
		trees, err := template.LoadAll(templatesDir)
		if err != nil {
			return nil, err
		}
		for _, tree := range trees {
			ids = append(ids, tree.ID)
		}
	}

	workers := i.cfg.Inspector.Workers
	if workers < 1 {
		workers = 1
	}

	op := logging.Start(i.logger, "inspect-batch")
	report := NewReport()
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(workers)
	for _, id := range ids {
		id := id
		p.Go(func() {
			result := i.inspectOne(ctx, templatesDir, id, opts)
			mu.Lock()
			defer mu.Unlock()
			report.add(result)
			if opts.Stream != nil {
				if err := opts.Stream.Write(result); err != nil {
					i.logger.Warn(ctx, err, "Failed to stream result", "template", id)
				}
			}
		})
	}
	p.Wait()

	report.finalize()
	op.Info(ctx, "Inspection batch finished",
		"total", report.Summary.Total,
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed)
	op.End(ctx)

	return report, nil
}

// inspectOne runs the pipeline for a single template. Panics inside a
// check are converted into a failed result so the batch keeps going.
func (i *Inspector) inspectOne(ctx context.Context, templatesDir, id string, opts Options) (result *Result) {
	result = &Result{Template: id, State: StatePending}
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error(ctx, fmt.Errorf("panic: %v", r), "Check aborted", "template", id)
			result.Violations = append(result.Violations, Violation{
				Rule:    "internal",
				Message: fmt.Sprintf("check aborted: %v", r),
			})
			result.Passed = false
			result.State = StateFailed
		}
	}()

	tree, err := template.Load(templatesDir, id)
	if err != nil {
		result.State = StateFailed
		result.Violations = append(result.Violations, Violation{
			Rule:    "load",
			Message: err.Error(),
		})
		return result
	}

	result.State = StateStaticCheck
	for _, rule := range i.rules {
		violations := rule.Check(tree)
		if len(violations) == 0 && opts.Verbose {
			result.PassedRules = append(result.PassedRules, rule.ID)
		}
		result.Violations = append(result.Violations, violations...)
	}

	// The dynamic check only makes sense on a statically sound template.
	if opts.Mode == ModeDynamic && len(result.Violations) == 0 {
		result.State = StateDynamicCheck
		violations := i.dynamicCheck(ctx, tree)
		if len(violations) == 0 && opts.Verbose {
			result.PassedRules = append(result.PassedRules, "dynamic-check")
		}
		result.Violations = append(result.Violations, violations...)
	}

	if len(result.Violations) == 0 {
		result.Passed = true
		result.State = StatePassed
	} else {
		result.State = StateFailed
	}

	return result
}

// dynamicCheck materializes the template into a disposable directory,
// installs its dependencies with the default backend, and runs its
// declared test command. The directory is removed afterwards regardless
// of outcome.
func (i *Inspector) dynamicCheck(ctx context.Context, tree *template.Tree) []Violation {
	workDir := filepath.Join(os.TempDir(), "fastkit-inspect-"+uuid.NewString())
	defer os.RemoveAll(workDir)

	meta := project.Metadata{
		Name:        "fastkit-check",
		Author:      "fastkit",
		AuthorEmail: "inspect@fastkit.dev",
		Description: "disposable template inspection instance",
		Version:     "0.1.0",
	}

	if _, err := i.materializer.Materialize(ctx, tree, workDir,
		project.NewSubstitutionContext(meta, nil), template.Options{}); err != nil {
		return []Violation{{Rule: "dynamic-materialize", Message: err.Error()}}
	}

	be, err := i.registry.Get(i.cfg.Backend.Default)
	if err != nil {
		return []Violation{{Rule: "dynamic-install", Message: err.Error()}}
	}

	deps := tree.Meta.Dependencies
	if len(deps) == 0 {
		deps = []project.Dependency{{Name: FrameworkDependency, Section: project.SectionRuntime}}
	}
	m, err := manifest.Generate(deps, meta, be.Descriptor())
	if err != nil {
		return []Violation{{Rule: "dynamic-install", Message: err.Error()}}
	}
	for _, file := range m.Files {
		path := filepath.Join(workDir, filepath.FromSlash(file.Path))
		if err := os.WriteFile(path, file.Content, 0o644); err != nil {
			return []Violation{{Rule: "dynamic-install", Message: err.Error()}}
		}
	}

	env, err := be.CreateEnvironment(ctx, workDir)
	if err != nil {
		return []Violation{{Rule: "dynamic-environment", Message: err.Error()}}
	}

	installed, err := be.Install(ctx, env)
	if err != nil {
		return []Violation{{Rule: "dynamic-install", Message: err.Error()}}
	}
	if installed.ExitCode != 0 {
		return []Violation{{
			Rule:    "dynamic-install",
			Message: fmt.Sprintf("install exited %d: %s", installed.ExitCode, installed.OutputTail(20)),
		}}
	}

	if len(tree.Meta.TestCommand) == 0 {
		return []Violation{{Rule: "dynamic-test", Message: "no test_command declared in " + template.MetaFilename}}
	}
	argv := be.TestCommand(env, tree.Meta.TestCommand)
	tested, err := i.testRunner.Run(ctx, workDir, argv[0], argv[1:]...)
	if err != nil {
		return []Violation{{Rule: "dynamic-test", Message: err.Error()}}
	}
	if tested.ExitCode != 0 {
		return []Violation{{
			Rule:    "dynamic-test",
			Message: fmt.Sprintf("test command exited %d: %s", tested.ExitCode, tested.OutputTail(20)),
		}}
	}

	return nil
}
