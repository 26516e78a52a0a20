// Package pipeline composes decoding, suppression, coordinate mapping and
// tracking into a per frame operation and runs batches of frames across
// streams concurrently.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/config"
	"github.com/lumina-vision/go-yolotrack/logger"
	"github.com/lumina-vision/go-yolotrack/metrics"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Pipeline runs frames through the decoder pool and the tracker
type Pipeline struct {
	pool    *Pool
	tracker *tracker.Tracker
	trail   *tracker.Trail
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	// canvas is the square detector input size frames must be letterboxed
	// onto
	canvas int
}

// Option configures optional collaborators of a Pipeline
type Option func(*Pipeline)

// WithTrail records the tracks of every frame into trail
func WithTrail(trail *tracker.Trail) Option {
	return func(p *Pipeline) {
		p.trail = trail
	}
}

// WithMetrics records frame statistics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithCanvasSize sets the detector input size frame metadata is checked
// against, yolotrack.DefaultCanvasSize when not given
func WithCanvasSize(size int) Option {
	return func(p *Pipeline) {
		p.canvas = size
	}
}

// WithLogger sets the logger frame statistics and failures are written to
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// New returns a pipeline decoding with workers decoders of the given
// parameters and tracking with tr
func New(params postprocess.YOLOv8Params, tr *tracker.Tracker, workers int,
	opts ...Option) (*Pipeline, error) {

	if tr == nil {
		return nil, errors.Wrap(yolotrack.ErrConfig, "pipeline needs a tracker")
	}

	pool, err := NewPool(workers, params)

	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		pool:    pool,
		tracker: tr,
		log:     logrus.StandardLogger().WithField("component", "pipeline"),
		canvas:  yolotrack.DefaultCanvasSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.canvas < 1 {
		return nil, errors.Wrapf(yolotrack.ErrConfig, "canvas size %d must be positive", p.canvas)
	}

	return p, nil
}

// FromConfig builds the tracker and pipeline described by cfg
func FromConfig(cfg config.Config, opts ...Option) (*Pipeline, error) {

	params, err := cfg.YOLOv8Params()

	if err != nil {
		return nil, err
	}

	tr, err := tracker.New(cfg.TrackerParams())

	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithCanvasSize(cfg.Pipeline.CanvasSize)}, opts...)

	return New(params, tr, cfg.Pipeline.Workers, opts...)
}

// Tracker returns the tracker of the pipeline
func (p *Pipeline) Tracker() *tracker.Tracker {
	return p.tracker
}

// Process runs a single frame
func (p *Pipeline) Process(req Request) Response {

	dec := p.pool.Get()
	defer p.pool.Return(dec)

	return p.process(dec, req)
}

// ProcessBatch runs a batch of frames and returns the responses in request
// order.  Frames of the same stream are processed sequentially in the order
// given, streams are processed concurrently bounded by the decoder pool.
// The context is checked between frames, frames not started when it is done
// fail with the context error.  Batch statistics are logged to the entry
// carried by ctx, the pipeline logger otherwise.
func (p *Pipeline) ProcessBatch(ctx context.Context, reqs []Request) []Response {

	out := make([]Response, len(reqs))
	log := logger.FromContextOr(ctx, p.log)

	var wg sync.WaitGroup

	for _, group := range groupByStream(reqs) {

		wg.Add(1)

		go func(group []int) {
			defer wg.Done()

			dec, err := p.pool.GetContext(ctx)

			if err != nil {
				for _, i := range group {
					out[i] = p.fail(reqs[i], err)
				}
				return
			}

			defer p.pool.Return(dec)

			for _, i := range group {

				if err := ctx.Err(); err != nil {
					out[i] = p.fail(reqs[i], err)
					continue
				}

				out[i] = p.process(dec, reqs[i])
			}
		}(group)
	}

	wg.Wait()

	failed := 0
	for _, r := range out {
		if r.Err != nil {
			failed++
		}
	}

	log.WithFields(logrus.Fields{
		"frames": len(reqs),
		"failed": failed,
	}).Debug("batch processed")

	return out
}

// groupByStream returns the request indices of each stream, streams in
// order of first appearance and indices in request order
func groupByStream(reqs []Request) [][]int {

	var groups [][]int
	index := make(map[int64]int)

	for i, r := range reqs {

		g, ok := index[r.StreamID]

		if !ok {
			g = len(groups)
			index[r.StreamID] = g
			groups = append(groups, nil)
		}

		groups[g] = append(groups[g], i)
	}

	return groups
}

// process runs a frame on the given decoder.  The tracker is only updated
// once the frame decoded successfully.
func (p *Pipeline) process(dec *postprocess.YOLOv8, req Request) Response {

	start := time.Now()

	meta, err := yolotrack.MetaFromSlice(req.Meta)

	if err != nil {
		return p.fail(req, err)
	}

	if err := yolotrack.CheckCanvas(req.Meta, meta, p.canvas); err != nil {
		return p.fail(req, err)
	}

	dets, err := dec.Process(req.Tensor, meta)

	if err != nil {
		return p.fail(req, err)
	}

	res, err := p.tracker.Update(req.StreamID, tracker.ObjectsFromDetections(dets))

	if err != nil {
		return p.fail(req, err)
	}

	if p.trail != nil {
		p.trail.Update(req.StreamID, res)
	}

	if p.metrics != nil {
		p.metrics.ObserveFrame(time.Since(start), len(dets), res.Created, res.Pruned)
	}

	return Response{
		StreamID:   req.StreamID,
		Detections: dets,
		Tracks:     res.Tracks,
	}
}

// fail returns the failed response of a request
func (p *Pipeline) fail(req Request, err error) Response {

	if p.metrics != nil {
		p.metrics.FrameFailed()
	}

	p.log.WithField(logger.FieldStream, req.StreamID).
		WithError(err).Warn("frame failed")

	return Response{
		StreamID: req.StreamID,
		Err:      errors.Wrapf(err, "stream %d", req.StreamID),
	}
}
