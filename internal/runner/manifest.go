package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gtmodkit/gtmulti/internal/launcher"
)

// Manifest is an optional <id>.yaml dropped beside a tool's executable.
// It overrides the built-in registration for that tool, so updated
// tool releases can ship new operation flags without a gtmulti rebuild.
type Manifest struct {
	Name       string               `yaml:"name"`
	Executable string               `yaml:"executable"`
	Summary    string               `yaml:"summary"`
	Timeout    string               `yaml:"timeout"`
	Operations []launcher.Operation `yaml:"operations"`
}

// LoadManifest reads <dir>/<id>.yaml. A missing file is not an error;
// a malformed one is, so callers can warn and keep the defaults.
func LoadManifest(dir, id string) (*Manifest, error) {
	path := filepath.Join(dir, id+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if m.Timeout != "" {
		if _, err := time.ParseDuration(m.Timeout); err != nil {
			return nil, fmt.Errorf("manifest %s: invalid timeout %q: %w", path, m.Timeout, err)
		}
	}
	for _, op := range m.Operations {
		if op.Name == "" {
			return nil, fmt.Errorf("manifest %s: operation with empty name", path)
		}
	}

	return &m, nil
}

// Apply overlays the manifest onto a registration. Unset manifest
// fields keep the built-in values.
func (m *Manifest) Apply(reg launcher.Registration) launcher.Registration {
	if m == nil {
		return reg
	}
	if m.Name != "" {
		reg.Name = m.Name
	}
	if m.Executable != "" {
		reg.Executable = m.Executable
	}
	if m.Summary != "" {
		reg.Summary = m.Summary
	}
	if len(m.Operations) > 0 {
		reg.Operations = m.Operations
	}
	return reg
}

// TimeoutDuration returns the manifest timeout, or zero if unset.
func (m *Manifest) TimeoutDuration() time.Duration {
	if m == nil || m.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(m.Timeout)
	if err != nil {
		return 0
	}
	return d
}
