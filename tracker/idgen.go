package tracker

import "sync"

// IDGenerator is a struct to hold a counter for generating the next
// incremental track ID number.  The first ID handed out is 1.
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator starting from zero
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (g *IDGenerator) GetNext() int64 {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}

// Last returns the most recently issued number, zero if none has been issued
func (g *IDGenerator) Last() int64 {
	g.Lock()
	defer g.Unlock()
	return g.id
}
