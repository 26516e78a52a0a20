package yolotrack

import (
	"math"

	"github.com/pkg/errors"
)

// MetaLen is the number of values in a serialised LetterboxMeta
const MetaLen = 9

// LetterboxMeta describes the forward letterbox transform applied to a frame
// before inference.  It is produced once per frame by the preprocessing
// stage and is read only to the post processing stages.
type LetterboxMeta struct {
	// OrigH and OrigW are the dimensions of the original frame
	OrigH float32
	OrigW float32
	// ResizedH and ResizedW are the dimensions of the frame after the aspect
	// preserving resize, before padding
	ResizedH float32
	ResizedW float32
	// Scale is the resize factor applied to the original frame
	Scale float32
	// padding added on each side of the resized frame to fill the canvas
	PadTop    float32
	PadLeft   float32
	PadBottom float32
	PadRight  float32
}

// MetaFromSlice builds LetterboxMeta from the flat META tensor layout
// [orig_h, orig_w, resized_h, resized_w, scale, pad_top, pad_left,
// pad_bottom, pad_right].  Any trailing values (eg: canvas size) are ignored.
func MetaFromSlice(v []float32) (LetterboxMeta, error) {

	if len(v) < MetaLen {
		return LetterboxMeta{}, errors.Wrapf(ErrMeta, "need %d values, got %d",
			MetaLen, len(v))
	}

	m := LetterboxMeta{
		OrigH:     v[0],
		OrigW:     v[1],
		ResizedH:  v[2],
		ResizedW:  v[3],
		Scale:     v[4],
		PadTop:    v[5],
		PadLeft:   v[6],
		PadBottom: v[7],
		PadRight:  v[8],
	}

	return m, m.Validate()
}

// Slice returns the flat META layout of the metadata
func (m LetterboxMeta) Slice() []float32 {
	return []float32{
		m.OrigH, m.OrigW, m.ResizedH, m.ResizedW, m.Scale,
		m.PadTop, m.PadLeft, m.PadBottom, m.PadRight,
	}
}

// Validate checks the metadata can be used to invert the letterbox transform
func (m LetterboxMeta) Validate() error {

	for i, v := range m.Slice() {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Wrapf(ErrMeta, "value %d is not finite", i)
		}
	}

	if m.Scale <= 0 {
		return errors.Wrapf(ErrMeta, "scale must be positive, got %v", m.Scale)
	}

	if m.OrigW < 1 || m.OrigH < 1 {
		return errors.Wrapf(ErrMeta, "original size %vx%v", m.OrigW, m.OrigH)
	}

	return nil
}

// DefaultCanvasSize is the square input size of the detector
const DefaultCanvasSize = 640

// NewLetterboxMeta computes the forward letterbox transform of a srcW x srcH
// frame onto a square canvas of the given size: the frame is resized
// preserving its aspect ratio to fit the canvas and the shorter dimension is
// padded symmetrically, any odd pixel going to the bottom/right.
func NewLetterboxMeta(srcW, srcH, canvas int) (LetterboxMeta, error) {

	if srcW < 1 || srcH < 1 || canvas < 1 {
		return LetterboxMeta{}, errors.Wrapf(ErrMeta, "cannot letterbox %dx%d onto %d canvas",
			srcW, srcH, canvas)
	}

	scale := math.Min(float64(canvas)/float64(srcW), float64(canvas)/float64(srcH))

	resizeW := int(math.RoundToEven(float64(srcW) * scale))
	resizeH := int(math.RoundToEven(float64(srcH) * scale))

	padT := (canvas - resizeH) / 2
	padL := (canvas - resizeW) / 2

	return LetterboxMeta{
		OrigH:     float32(srcH),
		OrigW:     float32(srcW),
		ResizedH:  float32(resizeH),
		ResizedW:  float32(resizeW),
		Scale:     float32(scale),
		PadTop:    float32(padT),
		PadLeft:   float32(padL),
		PadBottom: float32(canvas - resizeH - padT),
		PadRight:  float32(canvas - resizeW - padL),
	}, nil
}

// CheckCanvas verifies the flat META values v, decoded into m, describe a
// letterbox onto a square canvas of the given size.  The canvas size entry
// following the LetterboxMeta values is optional and zero means unset.
func CheckCanvas(v []float32, m LetterboxMeta, canvas int) error {

	size := float32(canvas)

	if len(v) > MetaLen && v[MetaLen] != 0 && v[MetaLen] != size {
		return errors.Wrapf(ErrMeta, "frame letterboxed onto %v canvas, detector input is %d",
			v[MetaLen], canvas)
	}

	// half a pixel of slack for rounding in the producer
	if m.PadLeft+m.ResizedW > size+0.5 || m.PadTop+m.ResizedH > size+0.5 {
		return errors.Wrapf(ErrMeta, "resized frame %vx%v at offset %v,%v exceeds %d canvas",
			m.ResizedW, m.ResizedH, m.PadLeft, m.PadTop, canvas)
	}

	return nil
}

// ToCanvas maps a box from original frame coordinates onto the letterboxed
// canvas, the forward counterpart of inverting the letterbox
func (m LetterboxMeta) ToCanvas(b Box) Box {
	return Box{
		X1: b.X1*m.Scale + m.PadLeft,
		Y1: b.Y1*m.Scale + m.PadTop,
		X2: b.X2*m.Scale + m.PadLeft,
		Y2: b.Y2*m.Scale + m.PadTop,
	}
}
