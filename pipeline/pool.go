package pipeline

import (
	"context"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/pkg/errors"
)

// Pool is a simple pool of decoders.  A decoder reuses its matrix buffer
// between frames so each one is used by a single goroutine at a time, the
// pool size bounds how many frames are decoded concurrently.
type Pool struct {
	// pool of decoders
	decoders chan *postprocess.YOLOv8
	// size of pool
	size int
}

// NewPool creates a pool of size decoders with the given parameters
func NewPool(size int, params postprocess.YOLOv8Params) (*Pool, error) {

	if size < 1 {
		return nil, errors.Wrapf(yolotrack.ErrConfig, "pool size %d, need at least one decoder", size)
	}

	p := &Pool{
		decoders: make(chan *postprocess.YOLOv8, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		dec, err := postprocess.NewYOLOv8(params)

		if err != nil {
			return nil, err
		}

		// attach to pool
		p.Return(dec)
	}

	return p, nil
}

// Get a decoder from the pool, blocking until one is available
func (p *Pool) Get() *postprocess.YOLOv8 {
	return <-p.decoders
}

// GetContext gets a decoder from the pool unless ctx is done first
func (p *Pool) GetContext(ctx context.Context) (*postprocess.YOLOv8, error) {
	select {
	case dec := <-p.decoders:
		return dec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return a decoder to the pool
func (p *Pool) Return(dec *postprocess.YOLOv8) {
	select {
	case p.decoders <- dec:
	default:
		// pool is full
	}
}

// Size returns the number of decoders in the pool
func (p *Pool) Size() int {
	return p.size
}
