package tracker

import "github.com/lumina-vision/go-yolotrack/postprocess"

// ObjectsFromDetections takes the post processed object detection results
// and converts them into tracker objects
func ObjectsFromDetections(dets []postprocess.DetectResult) []Object {

	objs := make([]Object, 0, len(dets))

	for _, det := range dets {
		objs = append(objs, NewObject(det.Box, det.Class, det.Probability))
	}

	return objs
}
