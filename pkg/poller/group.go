package poller

import "sync"

// Group holds the tasks started by one view so they can be cancelled together on unmount.
type Group struct {
	mu      sync.Mutex
	handles []*Handle
	closed  bool
}

// Track adds h to the group. A task tracked after CancelAll is cancelled straight away.
func (g *Group) Track(h *Handle) *Handle {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		h.Cancel()
		return h
	}
	g.handles = append(g.handles, h)
	g.mu.Unlock()

	return h
}

func (g *Group) CancelAll() {
	g.mu.Lock()
	handles := g.handles
	g.handles = nil
	g.closed = true
	g.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.handles)
}

// Refresh asks every tracked task to fetch now.
func (g *Group) Refresh() {
	g.mu.Lock()
	handles := append([]*Handle(nil), g.handles...)
	g.mu.Unlock()

	for _, h := range handles {
		h.Refresh()
	}
}
