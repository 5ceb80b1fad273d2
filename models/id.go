package models

import "sync"

// SequentialIDGenerator hands out ids starting from 1. Released ids are
// handed out again before new ones.
type SequentialIDGenerator struct {
	mutex    sync.Mutex
	last     uint32
	released map[uint32]struct{}
}

// New returns an unused id.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for id := range g.released {
		delete(g.released, id)
		return id
	}

	g.last++
	return g.last
}

// Reuse releases the given id so it can be returned by a later call to New.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.released == nil {
		g.released = make(map[uint32]struct{})
	}
	g.released[id] = struct{}{}
}

// Reset forgets every id handed out so far.
func (g *SequentialIDGenerator) Reset() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.last = 0
	g.released = nil
}
