package runner

import "sync"

const maxConsecutiveFailures = 3

// HealthTracker disables a tool after repeated launch failures so the
// shell stops offering a broken executable until it changes on disk.
type HealthTracker struct {
	mu    sync.Mutex
	fails map[string]int
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		fails: make(map[string]int),
	}
}

// MarkFailed records one launch failure.
func (h *HealthTracker) MarkFailed(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fails[id]++
}

// MarkSuccess clears the failure streak.
func (h *HealthTracker) MarkSuccess(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.fails, id)
}

// Disabled reports whether the tool's failure streak tripped the breaker.
func (h *HealthTracker) Disabled(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fails[id] >= maxConsecutiveFailures
}

// Failures returns the current consecutive failure count.
func (h *HealthTracker) Failures(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fails[id]
}

// Reset clears the streak, called when the executable changes on disk.
func (h *HealthTracker) Reset(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.fails, id)
}
