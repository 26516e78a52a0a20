package postprocess

import (
	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// YOLOv8 defines the struct for YOLOv8/YOLO11 model output post processing.
// The decoder expects the raw detection head output of shape
// [candidates, 4+classes] (or its transpose) with center-size box
// parameters followed by per class scores and no objectness score.
//
// A YOLOv8 instance reuses an internal matrix buffer between frames so it
// must not be used by more than one goroutine at a time.
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// tracked is the set of class ids kept by the decoder
	tracked map[int]struct{}
	// scratch is the matrix buffer reused across DetectObjects calls
	scratch *mat.Dense
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// ConfThreshold is the class confidence a candidate must exceed to be
	// kept
	ConfThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold, a detection
	// whose IoU with a higher scoring kept detection is greater than or equal
	// to this value is suppressed
	NMSThreshold float32
	// TrackedClasses is the allow-list of class ids kept by the decoder
	TrackedClasses []int
	// NumClasses is the number of object classes the Model was trained
	// with.  When zero it is taken from the width of the output tensor,
	// otherwise tensors of a different width are rejected.
	NumClasses int
	// MaxDetections is the maximum number of detections returned per frame
	// after suppression, zero for no limit
	MaxDetections int
	// ClassAware runs suppression separately per class instead of across
	// all classes
	ClassAware bool
}

// YOLOv8COCOParams returns an instance of YOLOv8Params configured with
// default values for a Model trained on the COCO dataset featuring:
// - Confidence Threshold: 0.25
// - NMS Threshold: 0.45
// - Tracked Classes: 0-4 (person, bicycle, car, motorcycle, airplane)
// - Object Classes: taken from the output tensor
func YOLOv8COCOParams() YOLOv8Params {
	return YOLOv8Params{
		ConfThreshold:  0.25,
		NMSThreshold:   0.45,
		TrackedClasses: []int{0, 1, 2, 3, 4},
	}
}

// Validate checks the parameters are usable
func (p YOLOv8Params) Validate() error {

	// written so NaN fails the check
	if !(p.ConfThreshold >= 0 && p.ConfThreshold <= 1) {
		return errors.Wrapf(yolotrack.ErrConfig, "conf threshold %v outside [0,1]", p.ConfThreshold)
	}

	if !(p.NMSThreshold >= 0 && p.NMSThreshold <= 1) {
		return errors.Wrapf(yolotrack.ErrConfig, "nms threshold %v outside [0,1]", p.NMSThreshold)
	}

	if p.NumClasses < 0 {
		return errors.Wrapf(yolotrack.ErrConfig, "negative class count %d", p.NumClasses)
	}

	if p.MaxDetections < 0 {
		return errors.Wrapf(yolotrack.ErrConfig, "negative max detections %d", p.MaxDetections)
	}

	if len(p.TrackedClasses) == 0 {
		return errors.Wrap(yolotrack.ErrConfig, "no tracked classes configured")
	}

	for _, c := range p.TrackedClasses {
		if c < 0 || (p.NumClasses > 0 && c >= p.NumClasses) {
			return errors.Wrapf(yolotrack.ErrConfig, "tracked class %d outside model classes [0,%d)",
				c, p.NumClasses)
		}
	}

	return nil
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) (*YOLOv8, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	tracked := make(map[int]struct{}, len(p.TrackedClasses))

	for _, c := range p.TrackedClasses {
		tracked[c] = struct{}{}
	}

	return &YOLOv8{
		Params:  p,
		tracked: tracked,
	}, nil
}

// DetectObjects decodes the raw output tensor into candidate detections in
// letterboxed canvas coordinates.  Only candidates whose best class is in
// the tracked class set and whose confidence exceeds the confidence
// threshold are returned.  No candidates, or no survivors, is not an error
// and returns an empty result.
func (y *YOLOv8) DetectObjects(t yolotrack.Tensor) ([]DetectResult, error) {

	m, err := t.Matrix(y.scratch)

	if err != nil {
		return nil, errors.Wrap(err, "error decoding detector output")
	}

	if m == nil {
		// no candidates
		return nil, nil
	}

	y.scratch = m

	rows, cols := m.Dims()

	if y.Params.NumClasses > 0 && cols-4 != y.Params.NumClasses {
		return nil, errors.Wrapf(yolotrack.ErrShape, "tensor carries %d class scores, model has %d",
			cols-4, y.Params.NumClasses)
	}

	var group []DetectResult

	for i := 0; i < rows; i++ {

		row := m.RawRowView(i)
		classScores := row[4:]

		// first index wins on equal scores
		classID := floats.MaxIdx(classScores)
		conf := float32(classScores[classID])

		if _, ok := y.tracked[classID]; !ok || !(conf > y.Params.ConfThreshold) {
			continue
		}

		group = append(group, DetectResult{
			Class: classID,
			Box: yolotrack.BoxFromCenter(float32(row[0]), float32(row[1]),
				float32(row[2]), float32(row[3])),
			Probability: conf,
		})
	}

	return group, nil
}

// Suppress removes overlapping duplicate detections and applies the
// MaxDetections limit
func (y *YOLOv8) Suppress(dets []DetectResult) []DetectResult {

	var kept []DetectResult

	if y.Params.ClassAware {
		kept = NMSByClass(dets, y.Params.NMSThreshold)
	} else {
		kept = NMS(dets, y.Params.NMSThreshold)
	}

	if y.Params.MaxDetections > 0 && len(kept) > y.Params.MaxDetections {
		kept = kept[:y.Params.MaxDetections]
	}

	return kept
}

// Process runs the complete post processing of a frame: decoding,
// suppression and mapping of the surviving boxes to original frame
// coordinates
func (y *YOLOv8) Process(t yolotrack.Tensor, meta yolotrack.LetterboxMeta) ([]DetectResult, error) {

	// validate metadata first so a bad frame fails before any work is done
	if err := meta.Validate(); err != nil {
		return nil, errors.Wrap(err, "cannot process frame")
	}

	dets, err := y.DetectObjects(t)

	if err != nil {
		return nil, err
	}

	if len(dets) == 0 {
		return nil, nil
	}

	return ToOriginal(y.Suppress(dets), meta)
}
