package postprocess

import (
	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
)

// BoxToOriginal maps a box from letterboxed canvas coordinates back to the
// original frame.  Padding is removed, the box is scaled back to the
// original size and then clipped to [0, width-1] x [0, height-1].
func BoxToOriginal(b yolotrack.Box, meta yolotrack.LetterboxMeta) yolotrack.Box {

	maxX := meta.OrigW - 1
	maxY := meta.OrigH - 1

	return yolotrack.Box{
		X1: clamp((b.X1-meta.PadLeft)/meta.Scale, 0, maxX),
		Y1: clamp((b.Y1-meta.PadTop)/meta.Scale, 0, maxY),
		X2: clamp((b.X2-meta.PadLeft)/meta.Scale, 0, maxX),
		Y2: clamp((b.Y2-meta.PadTop)/meta.Scale, 0, maxY),
	}
}

// ToOriginal returns a copy of the detections with their boxes mapped from
// letterboxed canvas coordinates to original frame coordinates
func ToOriginal(dets []DetectResult, meta yolotrack.LetterboxMeta) ([]DetectResult, error) {

	if err := meta.Validate(); err != nil {
		return nil, errors.Wrap(err, "cannot map detections to original frame")
	}

	if len(dets) == 0 {
		return nil, nil
	}

	out := make([]DetectResult, len(dets))

	for i, d := range dets {
		out[i] = d
		out[i].Box = BoxToOriginal(d.Box, meta)
	}

	return out, nil
}
