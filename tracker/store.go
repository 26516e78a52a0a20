package tracker

import (
	"sort"
	"sync"
)

// streamPool holds the tracks of a single stream.  Its mutex is held for
// the whole of a frame update so frames of one stream are applied in order.
type streamPool struct {
	sync.Mutex
	// tracks is an arena of track id to track
	tracks map[int64]*Track
	// order lists the track ids in creation order
	order []int64
	// ids issues the track ids of this stream
	ids *IDGenerator
	// removed is set once the pool has been dropped from the store, an
	// update must not be applied to it
	removed bool
}

func newStreamPool() *streamPool {
	return &streamPool{
		tracks: make(map[int64]*Track),
		ids:    NewIDGenerator(),
	}
}

// add appends a track to the pool
func (p *streamPool) add(t *Track) {
	p.tracks[t.ID] = t
	p.order = append(p.order, t.ID)
}

// prune deletes every track whose miss count exceeds maxAge and returns the
// ids removed
func (p *streamPool) prune(maxAge int) []int64 {

	var removed []int64
	kept := p.order[:0]

	for _, id := range p.order {

		t := p.tracks[id]

		if t.Miss > maxAge {
			t.State = Removed
			delete(p.tracks, id)
			removed = append(removed, id)
			continue
		}

		kept = append(kept, id)
	}

	p.order = kept

	return removed
}

// snapshot returns copies of the tracks in creation order
func (p *streamPool) snapshot() []Track {

	out := make([]Track, 0, len(p.order))

	for _, id := range p.order {
		out = append(out, *p.tracks[id])
	}

	return out
}

// TrackStore maps stream ids to their track pools.  The store lock only
// guards the map itself, updates of different streams never wait on each
// other.
type TrackStore struct {
	mu      sync.RWMutex
	streams map[int64]*streamPool
}

// NewTrackStore returns an empty store
func NewTrackStore() *TrackStore {
	return &TrackStore{
		streams: make(map[int64]*streamPool),
	}
}

// pool returns the pool of the stream, creating it on first use
func (s *TrackStore) pool(streamID int64) *streamPool {

	s.mu.RLock()
	p, ok := s.streams[streamID]
	s.mu.RUnlock()

	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another goroutine may have created it in the meantime
	if p, ok = s.streams[streamID]; ok {
		return p
	}

	p = newStreamPool()
	s.streams[streamID] = p

	return p
}

// acquire returns the pool of the stream locked, creating it on first use.
// A pool dropped from the store between lookup and locking is skipped so
// the update lands in the pool the store holds.
func (s *TrackStore) acquire(streamID int64) *streamPool {
	for {
		p := s.pool(streamID)
		p.Lock()

		if !p.removed {
			return p
		}

		p.Unlock()
	}
}

// lookup returns the pool of the stream if it exists
func (s *TrackStore) lookup(streamID int64) (*streamPool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.streams[streamID]
	return p, ok
}

// pools returns all pools currently in the store
func (s *TrackStore) pools() []*streamPool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*streamPool, 0, len(s.streams))

	for _, p := range s.streams {
		out = append(out, p)
	}

	return out
}

// Streams returns the ids of the streams with state, in ascending order
func (s *TrackStore) Streams() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.streams))

	for id := range s.streams {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Remove drops the state of a stream including its id counter.  An update
// of the stream already holding the pool completes before the pool is
// dropped.
func (s *TrackStore) Remove(streamID int64) bool {
	s.mu.Lock()
	p, ok := s.streams[streamID]
	delete(s.streams, streamID)
	s.mu.Unlock()

	if ok {
		p.markRemoved()
	}

	return ok
}

// Reset drops the state of all streams
func (s *TrackStore) Reset() {
	s.mu.Lock()
	old := s.streams
	s.streams = make(map[int64]*streamPool)
	s.mu.Unlock()

	for _, p := range old {
		p.markRemoved()
	}
}

// markRemoved flags a pool dropped from the store once no update holds it
func (p *streamPool) markRemoved() {
	p.Lock()
	p.removed = true
	p.Unlock()
}
