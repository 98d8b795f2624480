package view

import "sync"

// inflightGuard deduplicates concurrent fetches by entity id. Acquire is
// non-blocking: a caller that loses the race simply skips its fetch, because
// the winner's result will arrive on the bus either way.
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

// acquire claims the slot for id. It reports false when a fetch for the same
// id is already running.
func (g *inflightGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[id]; ok {
		return false
	}
	g.active[id] = struct{}{}
	return true
}

// release frees the slot for id.
func (g *inflightGuard) release(id string) {
	g.mu.Lock()
	delete(g.active, id)
	g.mu.Unlock()
}

// inFlight reports whether a fetch for id is currently running.
func (g *inflightGuard) inFlight(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[id]
	return ok
}
