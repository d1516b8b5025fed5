package runner

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Resolver locates a wrapped tool's executable. Locations are tried in
// order: the per-tool config override, the bundled tools directory
// (with and without the .exe suffix the upstream tools ship with), and
// finally $PATH. The first hit wins.
type Resolver struct {
	overrides map[string]string // tool ID -> absolute executable path
	toolsDir  string
	logger    *slog.Logger
	lookPath  func(string) (string, error) // swapped out in tests
}

func NewResolver(toolsDir string, overrides map[string]string, logger *slog.Logger) *Resolver {
	return &Resolver{
		overrides: overrides,
		toolsDir:  toolsDir,
		logger:    logger,
		lookPath:  exec.LookPath,
	}
}

// Resolve returns the absolute path of the tool's executable, or a
// NotFoundError listing every location tried.
func (r *Resolver) Resolve(id, executable string) (string, error) {
	var tried []string

	if override := r.overrides[id]; override != "" {
		if isRunnableFile(override) {
			return override, nil
		}
		tried = append(tried, override)
		r.logger.Debug("configured tool path missing", "tool", id, "path", override)
	}

	if r.toolsDir != "" {
		for _, name := range candidateNames(executable) {
			path := filepath.Join(r.toolsDir, name)
			if isRunnableFile(path) {
				return path, nil
			}
			tried = append(tried, path)
		}
	}

	if path, err := r.lookPath(executable); err == nil {
		return path, nil
	}
	tried = append(tried, "$PATH:"+executable)

	return "", &NotFoundError{Tool: id, Tried: tried}
}

func candidateNames(executable string) []string {
	if filepath.Ext(executable) != "" {
		return []string{executable}
	}
	return []string{executable, executable + ".exe"}
}

func isRunnableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
