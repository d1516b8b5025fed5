// Package project reads and writes .gtmulti project files: a snapshot
// of each tool's working paths that can be reopened later.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the project file extension.
const Ext = ".gtmulti"

// ToolState is what the shell remembers per tool inside a project.
type ToolState struct {
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// Project maps tool IDs to their saved state.
type Project struct {
	Tools map[string]ToolState `json:"tools"`
}

// New returns an empty project.
func New() *Project {
	return &Project{Tools: make(map[string]ToolState)}
}

// State returns the saved state for a tool, zero if absent.
func (p *Project) State(toolID string) ToolState {
	return p.Tools[toolID]
}

// SetState records a tool's state.
func (p *Project) SetState(toolID string, st ToolState) {
	if p.Tools == nil {
		p.Tools = make(map[string]ToolState)
	}
	p.Tools[toolID] = st
}

// Save writes the project as indented JSON, appending the .gtmulti
// extension when missing.
func Save(p *Project, path string) (string, error) {
	if !strings.HasSuffix(path, Ext) {
		path += Ext
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing project: %w", err)
	}
	return path, nil
}

// Load reads a project file. Tool entries the file does not mention are
// simply absent; unknown entries are kept so saving round-trips them.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}

	p := New()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", filepath.Base(path), err)
	}
	if p.Tools == nil {
		p.Tools = make(map[string]ToolState)
	}
	return p, nil
}
