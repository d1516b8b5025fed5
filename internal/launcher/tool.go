// Package launcher holds the registry of wrapped tools the shell can
// activate. Registrations are populated once at startup and never change
// at runtime.
package launcher

import (
	"context"
	"time"
)

// Operation is a named argument preset a wrapped tool understands,
// e.g. the model tool's ConvertToEditable (-oe).
type Operation struct {
	Name    string   `yaml:"name"`
	Args    []string `yaml:"args,omitempty"` // the input path, when given, is appended after these
	Summary string   `yaml:"summary,omitempty"`
}

// LaunchRequest carries what the user asked a tool to do.
type LaunchRequest struct {
	Operation string // operation name, empty for a plain hand-off
	Input     string // input file or directory, empty if none
	Captured  bool   // capture output instead of handing over the terminal
}

// RunResult describes a finished tool run.
type RunResult struct {
	RunID    string
	ExitCode int
	Stdout   string // only populated for captured runs
	Stderr   string
	Duration time.Duration
}

// ActivateFunc launches the tool and blocks until it exits.
type ActivateFunc func(ctx context.Context, req LaunchRequest) (RunResult, error)

// Registration describes one wrapped tool.
type Registration struct {
	Name       string // display label
	ID         string // stable key, unique within the registry
	Summary    string
	Executable string // base name of the executable, extension optional
	Operations []Operation
	Activate   ActivateFunc
}

// Operation returns the named operation preset, if the tool has one.
func (r Registration) Operation(name string) (Operation, bool) {
	for _, op := range r.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}
