package shell

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Stats records what the current shell session has launched.
type Stats struct {
	mu        sync.Mutex
	runs      int
	failures  int
	childTime time.Duration
	perTool   map[string]*toolUsage
}

type toolUsage struct {
	runs     int
	failures int
	time     time.Duration
}

func NewStats() *Stats {
	return &Stats{
		perTool: make(map[string]*toolUsage),
	}
}

// Record adds one finished launch.
func (st *Stats) Record(toolID string, d time.Duration, failed bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.runs++
	st.childTime += d
	if failed {
		st.failures++
	}

	tu, ok := st.perTool[toolID]
	if !ok {
		tu = &toolUsage{}
		st.perTool[toolID] = tu
	}
	tu.runs++
	tu.time += d
	if failed {
		tu.failures++
	}
}

// Summary returns a formatted view of the session's launches.
func (st *Stats) Summary() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := fmt.Sprintf("Session: %d runs (%d failed), %s in tools",
		st.runs, st.failures, st.childTime.Round(time.Millisecond))

	if len(st.perTool) > 0 {
		ids := make([]string, 0, len(st.perTool))
		for id := range st.perTool {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			tu := st.perTool[id]
			s += fmt.Sprintf("\n  %s: %d runs (%d failed), %s",
				id, tu.runs, tu.failures, tu.time.Round(time.Millisecond))
		}
	}

	return s
}

// Reset clears all recorded usage.
func (st *Stats) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.runs = 0
	st.failures = 0
	st.childTime = 0
	st.perTool = make(map[string]*toolUsage)
}
