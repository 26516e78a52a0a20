package pipeline

import (
	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/tracker"
)

// Request is a single frame to post process and track
type Request struct {
	// StreamID identifies the video stream the frame belongs to
	StreamID int64
	// Tensor is the raw detector output of the frame
	Tensor yolotrack.Tensor
	// Meta is the flat letterbox metadata emitted with the frame
	Meta []float32
}

// Response is the outcome of a Request
type Response struct {
	StreamID int64
	// Detections are the suppressed detections in original frame
	// coordinates
	Detections []postprocess.DetectResult
	// Tracks are the tracked objects emitted for the frame
	Tracks []tracker.TrackedObject
	// Err is set when the frame failed, the tracker state of the stream is
	// then left as it was before the frame
	Err error
}

// DetectionRows returns the detections in the [N, 6] layout
// [x1, y1, x2, y2, confidence, class_id]
func (r Response) DetectionRows() []float32 {
	return postprocess.Rows(r.Detections)
}

// TrackColumns returns the tracked objects split into the column tensors
// boxes [N, 4], track ids [N], class ids [N] and confidences [N]
func (r Response) TrackColumns() (boxes []float32, ids []int64, classes []int64, confidences []float32) {

	n := len(r.Tracks)

	boxes = make([]float32, 0, n*4)
	ids = make([]int64, 0, n)
	classes = make([]int64, 0, n)
	confidences = make([]float32, 0, n)

	for _, t := range r.Tracks {
		boxes = append(boxes, t.Box.X1, t.Box.Y1, t.Box.X2, t.Box.Y2)
		ids = append(ids, t.TrackID)
		classes = append(classes, int64(t.Class))
		confidences = append(confidences, t.Probability)
	}

	return boxes, ids, classes, confidences
}
