package render

import (
	"testing"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/render/overlay"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// pixel returns the BGR color at x,y of a CV_8UC3 Mat
func pixel(img gocv.Mat, x, y int) [3]uint8 {
	v := img.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func TestTrackerBoxes(t *testing.T) {

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	objs := []tracker.TrackedObject{{
		TrackID:     2,
		Box:         yolotrack.Box{X1: 50, Y1: 80, X2: 200, Y2: 220},
		Class:       0,
		Probability: 0.9,
	}}

	TrackerBoxes(&img, objs, yolotrack.COCOLabels, TrackFont(), 2)

	clr := overlay.TrackColor(2)

	// gocv draws RGBA colors as BGR
	assert.Equal(t, [3]uint8{clr.B, clr.G, clr.R}, pixel(img, 200, 150))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(img, 120, 150))
}

func TestDetectionBoxes(t *testing.T) {

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []postprocess.DetectResult{{
		Class:       2,
		Box:         yolotrack.Box{X1: 20, Y1: 60, X2: 100, Y2: 160},
		Probability: 0.7,
	}}

	// unknown class names fall back to class ids
	DetectionBoxes(&img, dets, nil, DefaultFont(), 1)

	clr := ClassColor(2)
	assert.Equal(t, [3]uint8{clr.B, clr.G, clr.R}, pixel(img, 20, 110))
}

func TestTrail(t *testing.T) {

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	trail := tracker.NewTrail(10)

	var obj tracker.TrackedObject

	for i := 0; i < 4; i++ {
		x := float32(20 + i*40)
		obj = tracker.TrackedObject{TrackID: 5, Box: yolotrack.Box{X1: x, Y1: 100, X2: x + 20, Y2: 120}}
		trail.Add(1, obj)
	}

	Trail(&img, 1, []tracker.TrackedObject{obj}, trail, DefaultTrailStyle())

	// line between the first two centers
	assert.Equal(t, [3]uint8{Yellow.B, Yellow.G, Yellow.R}, pixel(img, 50, 110))

	// circle on the latest center in the track color
	clr := overlay.TrackColor(5)
	assert.Equal(t, [3]uint8{clr.B, clr.G, clr.R}, pixel(img, 150, 110))
}
