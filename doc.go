/*
go-yolotrack provides the post-inference stage of a video object detection
pipeline for YOLOv8/YOLO11 style detectors.  It turns the raw output tensor of
the detector into a filtered and de-duplicated set of detections, maps those
detections back into the coordinate space of the original (pre letterbox)
frame, and maintains object identities per video stream with a lightweight
greedy IoU tracker.

The root package holds the shared data model used by the stage packages:

	postprocess  decoding, non-maximum suppression and letterbox inversion
	tracker      per stream track store and greedy frame to frame matching
	pipeline     composition of the stages for batches of frame requests
	preprocess   forward letterbox transform (metadata and gocv resize)
	render       drawing of detections and tracks

See cmd/yolotrack for a CLI that replays recorded detector tensors through
the pipeline.
*/
package yolotrack
