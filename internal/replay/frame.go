// Package replay reads recorded detector outputs and writes the per frame
// results of running them through the pipeline.
package replay

import (
	"strings"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/pipeline"
	"github.com/pkg/errors"
)

// Frame is a recorded detector output of one frame of a stream
type Frame struct {
	// Stream is the stream id the frame belongs to
	Stream int64 `msgpack:"stream"`
	// Shape is the shape of the detector output tensor
	Shape []int `msgpack:"shape"`
	// Data holds the tensor values when recorded as float32
	Data []float32 `msgpack:"data,omitempty"`
	// Raw holds the little endian tensor buffer as delivered by the
	// inference server, DType gives its element type
	Raw   []byte `msgpack:"raw,omitempty"`
	DType string `msgpack:"dtype,omitempty"`
	// Meta is the flat letterbox metadata of the frame
	Meta []float32 `msgpack:"meta"`
}

// Request converts the frame into a pipeline request
func (f Frame) Request() (pipeline.Request, error) {

	req := pipeline.Request{
		StreamID: f.Stream,
		Meta:     f.Meta,
	}

	if len(f.Raw) == 0 {
		req.Tensor = yolotrack.NewTensor(f.Shape, f.Data)
		return req, nil
	}

	var dtype yolotrack.TensorType

	switch strings.ToLower(f.DType) {
	case "", "fp32", "float32":
		dtype = yolotrack.TensorFloat32
	case "fp16", "float16":
		dtype = yolotrack.TensorFloat16
	default:
		return req, errors.Errorf("unsupported dtype %q", f.DType)
	}

	t, err := yolotrack.NewTensorFromBytes(f.Shape, dtype, f.Raw)

	if err != nil {
		return req, err
	}

	req.Tensor = t

	return req, nil
}
