// Package runner resolves and executes the wrapped tool executables.
// Activation is modal: the shell blocks until the child exits and then
// returns to its selection surface.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gtmodkit/gtmulti/internal/launcher"
)

const maxCapturedOutput = 10000
const defaultLaunchTimeout = 10 * time.Minute

// ErrToolDisabled is returned when the circuit breaker has tripped.
var ErrToolDisabled = errors.New("tool disabled")

type Runner struct {
	resolver *Resolver
	health   *HealthTracker
	logger   *slog.Logger
	timeout  func(id string) time.Duration
	extra    map[string][]string // per-tool extra args from config
	stdin    *os.File
	stdout   *os.File
	stderr   *os.File
}

func New(resolver *Resolver, logger *slog.Logger) *Runner {
	return &Runner{
		resolver: resolver,
		health:   NewHealthTracker(),
		logger:   logger,
		timeout:  func(string) time.Duration { return defaultLaunchTimeout },
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// SetTimeoutFunc installs the per-tool timeout lookup (from config).
func (r *Runner) SetTimeoutFunc(fn func(id string) time.Duration) {
	if fn != nil {
		r.timeout = fn
	}
}

// SetExtraArgs installs per-tool extra arguments from config.
func (r *Runner) SetExtraArgs(extra map[string][]string) {
	r.extra = extra
}

func (r *Runner) Health() *HealthTracker {
	return r.health
}

// Activation builds the launcher.ActivateFunc for a registration.
func (r *Runner) Activation(reg launcher.Registration) launcher.ActivateFunc {
	return func(ctx context.Context, req launcher.LaunchRequest) (launcher.RunResult, error) {
		return r.Launch(ctx, reg, req)
	}
}

// Available reports whether the tool resolves and is not disabled.
func (r *Runner) Available(reg launcher.Registration) bool {
	if r.health.Disabled(reg.ID) {
		return false
	}
	_, err := r.resolver.Resolve(reg.ID, reg.Executable)
	return err == nil
}

// Launch executes the tool and blocks until it exits. The child runs
// from its own directory, matching how the upstream tools expect to be
// invoked.
func (r *Runner) Launch(ctx context.Context, reg launcher.Registration, req launcher.LaunchRequest) (launcher.RunResult, error) {
	id := reg.ID

	if r.health.Disabled(id) {
		return launcher.RunResult{}, fmt.Errorf("%w: %s after %d consecutive launch failures", ErrToolDisabled, id, r.health.Failures(id))
	}

	path, err := r.resolver.Resolve(id, reg.Executable)
	if err != nil {
		r.logger.Warn("tool launch failed", "tool", id, "reason", ReasonNotFound.String(), "error", err)
		return launcher.RunResult{}, err
	}

	args, err := buildArgs(reg, req, r.extra[id])
	if err != nil {
		return launcher.RunResult{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout(id))
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Dir = filepath.Dir(path)

	var stdout, stderr bytes.Buffer
	if req.Captured {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdin = r.stdin
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
	}

	result := launcher.RunResult{RunID: uuid.NewString()}
	r.logger.Info("launching tool", "tool", id, "run", result.RunID, "path", path, "args", args)

	start := time.Now()
	runErr := cmd.Run()
	result.Duration = time.Since(start)

	if req.Captured {
		result.Stdout = truncate(stdout.String())
		result.Stderr = truncate(stderr.String())
	}

	if runErr != nil {
		// The kill on deadline surfaces as "signal: killed"; the context
		// error is the one worth classifying.
		if ctxErr := runCtx.Err(); ctxErr != nil {
			runErr = ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}

		wrapped := fmt.Errorf("launching %s: %w", id, runErr)
		reason := ClassifyError(wrapped)
		if reason.Countable() {
			r.health.MarkFailed(id)
		}
		r.logger.Warn("tool launch failed",
			"tool", id,
			"run", result.RunID,
			"reason", reason.String(),
			"exit_code", result.ExitCode,
			"error", runErr,
		)
		return result, wrapped
	}

	r.health.MarkSuccess(id)
	r.logger.Info("tool finished", "tool", id, "run", result.RunID, "duration", result.Duration)
	return result, nil
}

func buildArgs(reg launcher.Registration, req launcher.LaunchRequest, extra []string) ([]string, error) {
	var args []string

	if req.Operation != "" {
		op, ok := reg.Operation(req.Operation)
		if !ok {
			return nil, fmt.Errorf("tool %s has no operation %q", reg.ID, req.Operation)
		}
		args = append(args, op.Args...)
	}
	if req.Input != "" {
		args = append(args, req.Input)
	}
	args = append(args, extra...)

	return args, nil
}

func truncate(s string) string {
	if len(s) <= maxCapturedOutput {
		return s
	}
	return s[:maxCapturedOutput] + "\n... (output truncated)"
}
