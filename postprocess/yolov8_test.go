package postprocess

import (
	"math"
	"testing"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// almostEqual checks if two float32 values are approximately equal
func almostEqual(a, b, tolerance float32) bool {
	return float32(math.Abs(float64(a)-float64(b))) <= tolerance
}

// candidate is a single row of raw detector output
type candidate struct {
	cx, cy, w, h float32
	scores       []float32
}

// padCandidates appends zero score candidates until there are more
// candidates than values per candidate, so the orientation of the tensor is
// unambiguous
func padCandidates(cands []candidate) []candidate {

	width := 4 + len(cands[0].scores)
	out := append([]candidate(nil), cands...)

	for len(out) <= width {
		out = append(out, candidate{scores: make([]float32, width-4)})
	}

	return out
}

// rowMajorTensor builds a [1, N, 4+C] tensor from the candidates
func rowMajorTensor(cands []candidate) yolotrack.Tensor {

	cands = padCandidates(cands)
	width := 4 + len(cands[0].scores)
	data := make([]float32, 0, len(cands)*width)

	for _, c := range cands {
		data = append(data, c.cx, c.cy, c.w, c.h)
		data = append(data, c.scores...)
	}

	return yolotrack.NewTensor([]int{1, len(cands), width}, data)
}

// exportTensor builds the native export layout [1, 4+C, N] of the candidates
func exportTensor(cands []candidate) yolotrack.Tensor {

	cands = padCandidates(cands)
	width := 4 + len(cands[0].scores)
	data := make([]float32, width*len(cands))

	for n, c := range cands {
		row := append([]float32{c.cx, c.cy, c.w, c.h}, c.scores...)

		for f, v := range row {
			data[f*len(cands)+n] = v
		}
	}

	return yolotrack.NewTensor([]int{1, width, len(cands)}, data)
}

// scoreVec returns a score vector of n classes with a single class set
func scoreVec(n, class int, score float32) []float32 {
	v := make([]float32, n)
	v[class] = score
	return v
}

func newDecoder(t *testing.T, p YOLOv8Params) *YOLOv8 {
	y, err := NewYOLOv8(p)
	require.NoError(t, err)
	return y
}

func TestDetectObjectsFiltering(t *testing.T) {

	const classes = 8

	cands := []candidate{
		{30, 30, 40, 40, scoreVec(classes, 0, 0.9)},    // kept
		{100, 100, 20, 20, scoreVec(classes, 6, 0.95)}, // untracked class
		{200, 200, 20, 20, scoreVec(classes, 1, 0.2)},  // below threshold
		{300, 300, 20, 20, scoreVec(classes, 2, 0.25)}, // equal to threshold
		{400, 420, 10, 30, scoreVec(classes, 4, 0.5)},  // kept
	}

	y := newDecoder(t, YOLOv8COCOParams())

	dets, err := y.DetectObjects(rowMajorTensor(cands))
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, 0, dets[0].Class)
	assert.Equal(t, yolotrack.Box{X1: 10, Y1: 10, X2: 50, Y2: 50}, dets[0].Box)
	assert.Equal(t, float32(0.9), dets[0].Probability)

	assert.Equal(t, 4, dets[1].Class)
	assert.Equal(t, yolotrack.Box{X1: 395, Y1: 405, X2: 405, Y2: 435}, dets[1].Box)
}

func TestDetectObjectsTransposedLayout(t *testing.T) {

	const classes = 3

	cands := make([]candidate, 10)

	for i := range cands {
		cands[i] = candidate{float32(10 + i*50), 50, 20, 20, scoreVec(classes, i%classes, 0.1)}
	}

	cands[7].scores = scoreVec(classes, 2, 0.8)

	y := newDecoder(t, YOLOv8COCOParams())

	fromExport, err := y.DetectObjects(exportTensor(cands))
	require.NoError(t, err)

	fromRows, err := y.DetectObjects(rowMajorTensor(cands))
	require.NoError(t, err)

	require.Len(t, fromExport, 1)
	assert.Equal(t, fromRows, fromExport)
	assert.Equal(t, 2, fromExport[0].Class)
	assert.Equal(t, yolotrack.Box{X1: 350, Y1: 40, X2: 370, Y2: 60}, fromExport[0].Box)
}

func TestDetectObjectsArgmaxTie(t *testing.T) {

	cands := []candidate{
		{50, 50, 10, 10, []float32{0.1, 0.7, 0.7, 0.2}},
	}

	y := newDecoder(t, YOLOv8COCOParams())

	dets, err := y.DetectObjects(rowMajorTensor(cands))
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 1, dets[0].Class)
}

func TestDetectObjectsEmpty(t *testing.T) {

	y := newDecoder(t, YOLOv8COCOParams())

	// no candidates at all
	dets, err := y.DetectObjects(yolotrack.NewTensor([]int{1, 84, 0}, nil))
	require.NoError(t, err)
	assert.Empty(t, dets)

	// candidates but no survivors
	cands := []candidate{{50, 50, 10, 10, scoreVec(80, 0, 0.1)}}
	dets, err = y.DetectObjects(rowMajorTensor(cands))
	require.NoError(t, err)
	assert.Empty(t, dets)
	assert.Empty(t, Rows(dets))
}

func TestDetectObjectsShapeErrors(t *testing.T) {

	y := newDecoder(t, YOLOv8COCOParams())

	_, err := y.DetectObjects(yolotrack.NewTensor([]int{2, 3, 84}, make([]float32, 2*3*84)))
	assert.True(t, errors.Is(err, yolotrack.ErrShape), "got %v", err)

	p := YOLOv8COCOParams()
	p.NumClasses = 80
	y = newDecoder(t, p)

	cands := []candidate{{50, 50, 10, 10, scoreVec(10, 0, 0.9)}}
	_, err = y.DetectObjects(rowMajorTensor(cands))
	assert.True(t, errors.Is(err, yolotrack.ErrShape), "got %v", err)
}

func TestYOLOv8ParamsValidate(t *testing.T) {

	tests := []struct {
		name   string
		modify func(p *YOLOv8Params)
	}{
		{"negative conf", func(p *YOLOv8Params) { p.ConfThreshold = -0.1 }},
		{"conf above one", func(p *YOLOv8Params) { p.ConfThreshold = 1.5 }},
		{"negative nms", func(p *YOLOv8Params) { p.NMSThreshold = -1 }},
		{"nan conf", func(p *YOLOv8Params) { p.ConfThreshold = float32(math.NaN()) }},
		{"nan nms", func(p *YOLOv8Params) { p.NMSThreshold = float32(math.NaN()) }},
		{"no tracked classes", func(p *YOLOv8Params) { p.TrackedClasses = nil }},
		{"negative class", func(p *YOLOv8Params) { p.TrackedClasses = []int{0, -2} }},
		{"class beyond model", func(p *YOLOv8Params) { p.NumClasses = 3 }},
		{"negative max detections", func(p *YOLOv8Params) { p.MaxDetections = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := YOLOv8COCOParams()
			tc.modify(&p)

			_, err := NewYOLOv8(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, yolotrack.ErrConfig), "got %v", err)
		})
	}

	assert.NoError(t, YOLOv8COCOParams().Validate())
}

func TestProcess(t *testing.T) {

	// 1280x720 frame letterboxed onto 640x640: scale 0.5, 140px top padding
	meta, err := yolotrack.NewLetterboxMeta(1280, 720, yolotrack.DefaultCanvasSize)
	require.NoError(t, err)

	cands := []candidate{
		{100, 200, 40, 40, scoreVec(80, 0, 0.9)},
		{101, 201, 40, 40, scoreVec(80, 0, 0.8)}, // duplicate of the first
		{600, 480, 80, 60, scoreVec(80, 2, 0.7)}, // partly outside the frame
	}

	y := newDecoder(t, YOLOv8COCOParams())

	dets, err := y.Process(rowMajorTensor(cands), meta)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, yolotrack.Box{X1: 160, Y1: 80, X2: 240, Y2: 160}, dets[0].Box)
	assert.Equal(t, float32(0.9), dets[0].Probability)

	// right edge clipped to width-1, bottom edge clipped to height-1
	assert.Equal(t, yolotrack.Box{X1: 1120, Y1: 620, X2: 1279, Y2: 719}, dets[1].Box)
	assert.Equal(t, 2, dets[1].Class)

	_, err = y.Process(rowMajorTensor(cands), yolotrack.LetterboxMeta{})
	assert.True(t, errors.Is(err, yolotrack.ErrMeta), "got %v", err)
}

func TestSuppressMaxDetections(t *testing.T) {

	p := YOLOv8COCOParams()
	p.MaxDetections = 2
	y := newDecoder(t, p)

	dets := []DetectResult{
		{Class: 0, Box: yolotrack.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Probability: 0.5},
		{Class: 0, Box: yolotrack.Box{X1: 20, Y1: 0, X2: 30, Y2: 10}, Probability: 0.9},
		{Class: 0, Box: yolotrack.Box{X1: 40, Y1: 0, X2: 50, Y2: 10}, Probability: 0.7},
	}

	kept := y.Suppress(dets)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Probability)
	assert.Equal(t, float32(0.7), kept[1].Probability)
}
