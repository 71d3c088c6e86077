package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
	"github.com/bnbong/FastAPI-fastkit-sub000/internal/logging"
)

// allowedCommands is the allowlist of executables the runner will spawn.
var allowedCommands = map[string]bool{
	"python":  true,
	"python3": true,
	"pip":     true,
	"uv":      true,
	"pdm":     true,
	"poetry":  true,
}

// Runner executes backend subprocesses with a bounded timeout and full
// output capture. It is the only place in the core that spawns processes.
type Runner struct {
	timeout time.Duration
	logger  logging.Logger
	// extraAllowed widens the allowlist, used by the inspector for template
	// test commands.
	extraAllowed map[string]bool
}

// NewRunner creates a runner. A non-positive timeout disables the bound.
func NewRunner(timeout time.Duration, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Runner{
		timeout: timeout,
		logger:  logger.WithComponent("runner"),
	}
}

// Allow permits an additional executable by name or path.
func (r *Runner) Allow(command string) {
	if r.extraAllowed == nil {
		r.extraAllowed = make(map[string]bool)
	}
	r.extraAllowed[command] = true
}

// Run executes one command in dir and captures its output. A nonzero exit
// is not an error here: the caller decides what a nonzero exit means. The
// returned error covers command rejection, spawn failures, and timeouts.
func (r *Runner) Run(ctx context.Context, dir, command string, args ...string) (*ExecutionResult, error) {
	if err := r.validate(command, args); err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr, combined lockedBuffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stdout = io.MultiWriter(&stdout, &combined)
	cmd.Stderr = io.MultiWriter(&stderr, &combined)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The process was killed by cancellation or deadline before it
			// could exit on its own.
			r.logger.Warn(ctx, ctxErr, "Subprocess terminated",
				"command", command,
				"duration_ms", duration.Milliseconds())
			return result, fkerrors.Timeout(command+" "+strings.Join(args, " "), ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debug(ctx, "Subprocess exited nonzero",
				"command", command,
				"exit_code", result.ExitCode)
			return result, nil
		}

		return nil, fkerrors.Wrap(err, fkerrors.ErrorTypeBackend,
			fkerrors.ErrCodeInternal, "failed to start "+command)
	}

	r.logger.Debug(ctx, "Subprocess completed",
		"command", command,
		"duration_ms", duration.Milliseconds())

	return result, nil
}

// validate rejects commands outside the allowlist and arguments carrying
// shell metacharacters. Arguments never pass through a shell, so this is a
// defense against manifest-injected surprises rather than a parser.
func (r *Runner) validate(command string, args []string) error {
	base := command
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if !allowedCommands[base] && !r.extraAllowed[command] && !r.extraAllowed[base] {
		return fkerrors.CommandRejected(command)
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, ";|&`$\n") {
			return fkerrors.CommandRejected(command + " " + arg)
		}
	}

	return nil
}

// lockedBuffer guards concurrent writes from the stdout and stderr pipes
// feeding the combined capture.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
