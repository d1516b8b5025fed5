package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolNotFound is wrapped by NotFoundError for errors.Is checks.
var ErrToolNotFound = errors.New("tool executable not found")

// NotFoundError reports every location the resolver tried.
type NotFoundError struct {
	Tool  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool executable not found: %s (tried %s)", e.Tool, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// FailReason categorizes why a tool launch failed.
type FailReason int

const (
	ReasonUnknown       FailReason = iota
	ReasonNotFound                 // executable missing from every resolver location
	ReasonNotExecutable            // file exists but cannot be started
	ReasonTimeout                  // launch timeout elapsed, child was killed
	ReasonExit                     // child started and exited nonzero
	ReasonCancelled                // shell shutdown killed the child
	ReasonDisabled                 // circuit breaker tripped after repeated failures
)

func (r FailReason) String() string {
	switch r {
	case ReasonNotFound:
		return "not_found"
	case ReasonNotExecutable:
		return "not_executable"
	case ReasonTimeout:
		return "timeout"
	case ReasonExit:
		return "exit"
	case ReasonCancelled:
		return "cancelled"
	case ReasonDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Countable reports whether the failure counts toward the tool's
// circuit breaker. User-side failures (cancellation, bad input paths)
// do not disable a tool.
func (r FailReason) Countable() bool {
	switch r {
	case ReasonNotExecutable, ReasonTimeout, ReasonExit:
		return true
	default:
		return false
	}
}

// ClassifyError determines the failure reason for a launch error.
func ClassifyError(err error) FailReason {
	if err == nil {
		return ReasonUnknown
	}

	if errors.Is(err, ErrToolNotFound) {
		return ReasonNotFound
	}
	if errors.Is(err, ErrToolDisabled) {
		return ReasonDisabled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ReasonExit
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return ReasonNotExecutable
	}

	msg := err.Error()
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "exec format error") {
		return ReasonNotExecutable
	}

	return ReasonUnknown
}
