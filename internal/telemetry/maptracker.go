package telemetry

import "sync"

// MapTracker follows the context block's map id across snapshots.
type MapTracker struct {
	mu      sync.Mutex
	current uint32
}

// Current returns the last observed map id, or 0 before the first map.
func (t *MapTracker) Current() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Observe records the map id carried by s and returns the previous id and
// whether it changed. Snapshots without a frame are ignored.
func (t *MapTracker) Observe(s Snapshot) (prev uint32, changed bool) {
	if !s.Ready() {
		return t.Current(), false
	}
	id := s.Context().MapID
	t.mu.Lock()
	defer t.mu.Unlock()
	prev = t.current
	if id == prev {
		return prev, false
	}
	t.current = id
	return prev, true
}
