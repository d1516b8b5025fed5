// Package bootstrap handles first-run setup: detecting the install,
// probing the bundled executables, and writing the default config.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gtmodkit/gtmulti/internal/config"
	"github.com/gtmodkit/gtmulti/internal/launcher"
	"github.com/gtmodkit/gtmulti/internal/runner"
)

type SystemInfo struct {
	OS          string
	Arch        string
	InstallRoot string
	ToolsDir    string
	Found       map[string]string // tool ID -> resolved executable path
	HasCarNames bool
}

// Detect inspects the system and probes each builtin tool.
func Detect(cfg *config.Config, logger *slog.Logger) *SystemInfo {
	info := &SystemInfo{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		InstallRoot: cfg.Install.Root,
		ToolsDir:    cfg.Install.ToolsDir,
		Found:       make(map[string]string),
	}

	resolver := runner.NewResolver(cfg.Install.ToolsDir, ToolOverrides(cfg), logger)
	for _, reg := range launcher.Builtin() {
		if path, err := resolver.Resolve(reg.ID, reg.Executable); err == nil {
			info.Found[reg.ID] = path
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.Install.DataDir, "CarNames.json")); err == nil {
		info.HasCarNames = true
	}

	return info
}

// ToolOverrides extracts configured executable paths per tool.
func ToolOverrides(cfg *config.Config) map[string]string {
	overrides := make(map[string]string)
	for id, tc := range cfg.Tools {
		if tc.Path != "" {
			overrides[id] = tc.Path
		}
	}
	return overrides
}

// ExtraArgs extracts configured extra arguments per tool.
func ExtraArgs(cfg *config.Config) map[string][]string {
	extra := make(map[string][]string)
	for id, tc := range cfg.Tools {
		if len(tc.ExtraArgs) > 0 {
			extra[id] = tc.ExtraArgs
		}
	}
	return extra
}

// EnsureWorkspace creates the gtmulti home directories.
func EnsureWorkspace() error {
	home := config.Home()
	dirs := []string{
		home,
		filepath.Join(home, "projects"),
		filepath.Join(home, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// GenerateDefaultConfig renders the starter config for this install.
func GenerateDefaultConfig(info *SystemInfo) (string, error) {
	cfg := map[string]any{
		"install": map[string]any{
			"root": info.InstallRoot,
		},
		"log": map[string]any{
			"level": "info",
		},
	}

	// Pin paths for every tool found somewhere other than the tools dir,
	// so a later move of the shell binary keeps working.
	tools := make(map[string]any)
	for id, path := range info.Found {
		if filepath.Dir(path) != info.ToolsDir {
			tools[id] = map[string]any{"path": path}
		}
	}
	if len(tools) > 0 {
		cfg["tools"] = tools
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	return string(data) + "\n", nil
}
