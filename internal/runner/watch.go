package runner

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-probes tool availability when the tools directory changes,
// so a user can drop a missing executable into place without restarting
// the shell. It also clears a tripped circuit breaker for a replaced
// executable.
type Watcher struct {
	fw       *fsnotify.Watcher
	health   *HealthTracker
	logger   *slog.Logger
	onChange func()
	done     chan struct{}
}

// ToolKey normalizes an executable name for watcher lookups: base name,
// lowercased, extension stripped. Both the ids map and event names go
// through it so `GT2ModelTool` and `GT2ModelTool.exe` match the same key.
func ToolKey(name string) string {
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// WatchTools watches dir and invokes onChange after any relevant event.
// ids maps ToolKey(executable) back to tool IDs for breaker resets.
func WatchTools(dir string, ids map[string]string, health *HealthTracker, logger *slog.Logger, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		health:   health,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop(ids)
	return w, nil
}

func (w *Watcher) loop(ids map[string]string) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove) {
				continue
			}
			if id, ok := ids[ToolKey(event.Name)]; ok {
				w.logger.Info("tool executable changed", "tool", id, "event", event.Op.String())
				w.health.Reset(id)
			}
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("tools watcher error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
