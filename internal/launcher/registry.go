package launcher

import (
	"context"
	"fmt"
	"sync"
)

// Registry is the ordered set of wrapped tools. Registration order is
// the display order; it is stable across restarts.
type Registry struct {
	order []string
	tools map[string]Registration
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Registration),
	}
}

// Register adds a tool. IDs must be unique and non-empty.
func (r *Registry) Register(reg Registration) error {
	if reg.ID == "" {
		return ErrEmptyID
	}
	if reg.Activate == nil {
		return fmt.Errorf("%w: %s", ErrNoActivate, reg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[reg.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, reg.ID)
	}
	r.tools[reg.ID] = reg
	r.order = append(r.order, reg.ID)
	return nil
}

// Get returns a registration by ID.
func (r *Registry) Get(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[id]
	return reg, ok
}

// List returns all registrations in registration order.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Registration, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.tools[id])
	}
	return list
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Select activates the tool with the given ID and blocks until it exits.
// An unregistered ID fails with ErrUnknownTool and activates nothing.
func (r *Registry) Select(ctx context.Context, id string, req LaunchRequest) (RunResult, error) {
	reg, ok := r.Get(id)
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrUnknownTool, id)
	}
	return reg.Activate(ctx, req)
}
