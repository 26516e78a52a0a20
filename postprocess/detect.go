package postprocess

import "github.com/lumina-vision/go-yolotrack"

// RowLen is the number of values in a serialised detection row
// [x1, y1, x2, y2, confidence, class_id]
const RowLen = 6

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box yolotrack.Box
	// Probability is the confidence score of the object detected
	Probability float32
}

// Row returns the detection as [x1, y1, x2, y2, confidence, class_id]
func (d DetectResult) Row() [RowLen]float32 {
	return [RowLen]float32{
		d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2, d.Probability, float32(d.Class),
	}
}

// Rows flattens the detections into the [N, 6] DETECTIONS layout.  Zero
// detections give a zero length slice.
func Rows(dets []DetectResult) []float32 {

	out := make([]float32, 0, len(dets)*RowLen)

	for _, d := range dets {
		row := d.Row()
		out = append(out, row[:]...)
	}

	return out
}

// boxes returns the bounding boxes of the detections
func boxes(dets []DetectResult) []yolotrack.Box {
	out := make([]yolotrack.Box, len(dets))
	for i, d := range dets {
		out[i] = d.Box
	}
	return out
}

// scores returns the confidence scores of the detections
func scores(dets []DetectResult) []float32 {
	out := make([]float32, len(dets))
	for i, d := range dets {
		out[i] = d.Probability
	}
	return out
}
