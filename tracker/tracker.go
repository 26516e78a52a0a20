package tracker

import (
	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Params defines the tracker configuration
type Params struct {
	// IoUThreshold is the minimum IoU between a track's last box and a
	// detection for the detection to continue the track
	IoUThreshold float32
	// MaxAge is the number of consecutive missed frames a track survives,
	// it is removed on the frame its miss count exceeds this value
	MaxAge int
}

// DefaultParams returns the tracker defaults:
// - IoU Threshold: 0.45
// - Max Age: 30 frames
func DefaultParams() Params {
	return Params{
		IoUThreshold: 0.45,
		MaxAge:       30,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {

	if !(p.IoUThreshold >= 0 && p.IoUThreshold <= 1) {
		return errors.Wrapf(yolotrack.ErrConfig, "iou threshold %v outside [0,1]", p.IoUThreshold)
	}

	if p.MaxAge < 0 {
		return errors.Wrapf(yolotrack.ErrConfig, "negative max age %d", p.MaxAge)
	}

	return nil
}

// Result is the outcome of a frame update
type Result struct {
	// Tracks are the tracks emitted this frame, matched tracks in track
	// creation order followed by new tracks in detection order
	Tracks []TrackedObject
	// Created is the number of tracks created this frame
	Created int
	// Pruned is the number of tracks removed this frame
	Pruned int
	// RemovedIDs are the ids of the tracks removed this frame
	RemovedIDs []int64
	// Active is the number of tracks held for the stream after the update
	Active int
}

// Tracker assigns persistent identities to detections per stream using
// greedy IoU matching.  Each track, in creation order, takes the unused
// detection it overlaps most, so an earlier track can take a detection a
// later track would have matched better.
type Tracker struct {
	params Params
	store  *TrackStore
	log    logrus.FieldLogger
}

// New returns a tracker with the given parameters
func New(p Params) (*Tracker, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Tracker{
		params: p,
		store:  NewTrackStore(),
		log:    logrus.StandardLogger().WithField("component", "tracker"),
	}, nil
}

// SetLogger sets the logger per frame statistics are written to
func (t *Tracker) SetLogger(l logrus.FieldLogger) {
	t.log = l
}

// Params returns the tracker parameters
func (t *Tracker) Params() Params {
	return t.params
}

// Update runs the tracker for the next frame of a stream.  The objects must
// be in original frame coordinates.  Every object is validated before any
// state is touched, an invalid object fails the frame and leaves the stream
// unchanged.  Frames of the same stream are serialised, frames of different
// streams run concurrently.
func (t *Tracker) Update(streamID int64, objs []Object) (Result, error) {

	for i, o := range objs {
		if err := o.validate(); err != nil {
			return Result{}, errors.Wrapf(err, "stream %d object %d", streamID, i)
		}
	}

	pool := t.store.acquire(streamID)
	defer pool.Unlock()

	used := make([]bool, len(objs))
	res := Result{
		Tracks: make([]TrackedObject, 0, len(objs)),
	}

	// greedy match existing tracks to detections
	for _, id := range pool.order {

		track := pool.tracks[id]
		track.Age++

		bestIoU := float32(0)
		bestIdx := -1

		for j, o := range objs {

			if used[j] {
				continue
			}

			if iou := yolotrack.IoU(track.Box, o.Box); iou > bestIoU {
				bestIoU = iou
				bestIdx = j
			}
		}

		if bestIdx < 0 || bestIoU < t.params.IoUThreshold {
			track.Miss++
			continue
		}

		used[bestIdx] = true

		det := objs[bestIdx]
		track.Box = det.Box
		track.Class = det.Class
		track.Probability = det.Prob
		track.Miss = 0
		track.State = Active

		res.Tracks = append(res.Tracks, track.emit())
	}

	// create new tracks for unmatched detections
	for j, o := range objs {

		if used[j] {
			continue
		}

		track := &Track{
			ID:          pool.ids.GetNext(),
			Box:         o.Box,
			Class:       o.Class,
			Probability: o.Prob,
			State:       StateNew,
		}

		pool.add(track)
		res.Tracks = append(res.Tracks, track.emit())
		res.Created++
	}

	res.RemovedIDs = pool.prune(t.params.MaxAge)
	res.Pruned = len(res.RemovedIDs)
	res.Active = len(pool.tracks)

	t.log.WithFields(logrus.Fields{
		"stream":     streamID,
		"detections": len(objs),
		"output":     len(res.Tracks),
		"created":    res.Created,
		"pruned":     res.Pruned,
		"active":     res.Active,
	}).Debug("tracking stats")

	return res, nil
}

// Tracks returns a snapshot of the tracks held for a stream in creation
// order, nil if the stream has no state
func (t *Tracker) Tracks(streamID int64) []Track {

	pool, ok := t.store.lookup(streamID)

	if !ok {
		return nil
	}

	pool.Lock()
	defer pool.Unlock()

	return pool.snapshot()
}

// Streams returns the ids of all streams with state
func (t *Tracker) Streams() []int64 {
	return t.store.Streams()
}

// ResetStream drops all state of a stream, used when its sequence ends.  A
// later frame with the same stream id starts a new sequence with ids from 1.
// An update running concurrently is ordered either before the reset, and
// dropped with it, or after it as the first frame of the new sequence.
func (t *Tracker) ResetStream(streamID int64) {
	if t.store.Remove(streamID) {
		t.log.WithField("stream", streamID).Debug("stream state dropped")
	}
}

// Reset drops the state of all streams
func (t *Tracker) Reset() {
	t.store.Reset()
}

// Len returns the number of tracks held across all streams
func (t *Tracker) Len() int {

	n := 0

	for _, pool := range t.store.pools() {
		pool.Lock()
		n += len(pool.tracks)
		pool.Unlock()
	}

	return n
}
