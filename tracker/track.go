package tracker

import "github.com/lumina-vision/go-yolotrack"

// TrackState represents the lifecycle state of a tracked object
type TrackState int

const (
	// StateNew is a track created from an unmatched detection this frame
	StateNew TrackState = 0
	// Active is a track that has been matched to a detection at least once
	Active TrackState = 1
	// Removed is a track whose miss count exceeded the maximum age.  It is
	// deleted from the store and its id is never handed out again.
	Removed TrackState = 2
)

// String returns the name of the state
func (s TrackState) String() string {
	switch s {
	case StateNew:
		return "new"
	case Active:
		return "active"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Track is the persistent identity of an object within a single stream
type Track struct {
	// ID is the track id, unique within its stream
	ID int64
	// Box is the last matched position of the object
	Box yolotrack.Box
	// Class and Probability are taken from the last matched detection
	Class       int
	Probability float32
	// Age is the number of frames since the track was created
	Age int
	// Miss is the number of consecutive frames without a match
	Miss int
	// State is the lifecycle state of the track
	State TrackState
}

// TrackedObject is a track emitted for the current frame
type TrackedObject struct {
	// TrackID is the id of the track within its stream
	TrackID int64
	// Box is the detection box the track was matched or created with
	Box yolotrack.Box
	// Class is the class id of the detection
	Class int
	// Probability is the confidence score of the detection
	Probability float32
}

// emit returns the output entry of the track for the current frame
func (t *Track) emit() TrackedObject {
	return TrackedObject{
		TrackID:     t.ID,
		Box:         t.Box,
		Class:       t.Class,
		Probability: t.Probability,
	}
}
