package tracker

import "sync"

// Point represents the x,y coordinates of the center of a tracked box
type Point struct {
	X, Y int
}

// trailKey identifies a track across all streams
type trailKey struct {
	stream int64
	track  int64
}

// Trail is the struct to keep a history of track positions used for drawing
// a trail behind each tracked object
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points
	history map[trailKey][]Point
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the number of most
// recent points kept per track and specifies the maximum length of the trail,
// zero or less keeps no history
func NewTrail(size int) *Trail {

	if size < 0 {
		size = 0
	}

	return &Trail{
		size:    size,
		history: make(map[trailKey][]Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[trailKey][]Point)
}

// Add appends the center point of a tracked object to its history
func (t *Trail) Add(streamID int64, obj TrackedObject) {
	t.Lock()
	defer t.Unlock()

	t.add(trailKey{streamID, obj.TrackID}, obj)
}

func (t *Trail) add(key trailKey, obj TrackedObject) {

	if t.size == 0 {
		return
	}

	x, y := obj.Box.Center()
	points := append(t.history[key], Point{X: int(x), Y: int(y)})

	// drop the oldest points once history is exceeded
	if len(points) > t.size {
		points = points[len(points)-t.size:]
	}

	t.history[key] = points
}

// Update records the tracks emitted by a frame update and forgets the
// tracks it removed
func (t *Trail) Update(streamID int64, res Result) {
	t.Lock()
	defer t.Unlock()

	for _, obj := range res.Tracks {
		t.add(trailKey{streamID, obj.TrackID}, obj)
	}

	for _, id := range res.RemovedIDs {
		delete(t.history, trailKey{streamID, id})
	}
}

// Forget drops the history of the given tracks of a stream
func (t *Trail) Forget(streamID int64, ids ...int64) {
	t.Lock()
	defer t.Unlock()

	for _, id := range ids {
		delete(t.history, trailKey{streamID, id})
	}
}

// ForgetStream drops the history of every track of a stream
func (t *Trail) ForgetStream(streamID int64) {
	t.Lock()
	defer t.Unlock()

	for key := range t.history {
		if key.stream == streamID {
			delete(t.history, key)
		}
	}
}

// GetPoints returns a copy of the point history of a track, oldest first
func (t *Trail) GetPoints(streamID int64, id int64) []Point {
	t.Lock()
	defer t.Unlock()

	points, exists := t.history[trailKey{streamID, id}]

	if !exists {
		// no history yet
		return nil
	}

	return append([]Point(nil), points...)
}
