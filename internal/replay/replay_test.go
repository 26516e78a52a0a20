package replay

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/pipeline"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/x448/float16"
)

const recording = `{"stream": 3, "shape": [1, 2, 6], "data": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12], "meta": [1280, 720, 0.5, 0, 140, 640, 360, 0, 0]}

{"stream": 4, "shape": [1, 6, 2], "data": [], "meta": [640, 640, 1, 0, 0, 640, 640, 0, 0]}
`

func TestJSONLReader(t *testing.T) {

	r := NewJSONLReader(strings.NewReader(recording))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.Stream)
	assert.Equal(t, []int{1, 2, 6}, f.Shape)
	assert.Len(t, f.Data, 12)
	assert.Equal(t, float32(12), f.Data[11])
	assert.Equal(t, float32(0.5), f.Meta[2])

	// the blank line is skipped
	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.Stream)
	assert.Nil(t, f.Data)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestJSONLReaderErrors(t *testing.T) {

	r := NewJSONLReader(strings.NewReader("{\"stream\": 1}\n{\"shape\": [1]}\n"))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "no stream")

	_, err = ParseJSONFrame([]byte("{\"stream\": 1,"))
	assert.Error(t, err)
}

func TestMsgpackRoundTrip(t *testing.T) {

	frames := []Frame{
		{Stream: 1, Shape: []int{1, 6, 1}, Data: []float32{1, 2, 3, 4, 0.5, 0.25}, Meta: []float32{640, 640, 1, 0, 0, 640, 640, 0, 0}},
		{Stream: 2, Shape: []int{1, 1, 1}, Raw: []byte{0, 60}, DType: "fp16", Meta: []float32{1}},
	}

	var buf bytes.Buffer

	for _, f := range frames {
		require.NoError(t, WriteMsgpack(&buf, f))
	}

	r := NewMsgpackReader(&buf)

	for _, want := range frames {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMsgpackReaderTruncated(t *testing.T) {

	var buf bytes.Buffer
	require.NoError(t, WriteMsgpack(&buf, Frame{Stream: 1}))

	data := buf.Bytes()[:buf.Len()-1]

	_, err := NewMsgpackReader(bytes.NewReader(data)).Next()
	assert.Error(t, err)

	// length prefix beyond the limit
	var huge [4]byte
	binary.BigEndian.PutUint32(huge[:], maxLine+1)

	_, err = NewMsgpackReader(bytes.NewReader(huge[:])).Next()
	assert.Error(t, err)
}

func TestFrameRequest(t *testing.T) {

	f := Frame{Stream: 9, Shape: []int{1, 3}, Data: []float32{1, 2, 3}, Meta: []float32{1}}

	req, err := f.Request()
	require.NoError(t, err)
	assert.Equal(t, int64(9), req.StreamID)
	assert.Equal(t, []float32{1, 2, 3}, req.Tensor.Data)
	assert.Equal(t, []float32{1}, req.Meta)

	// half precision buffer from an inference server
	raw := make([]byte, 0, 6)
	for _, v := range []float32{1.5, -2, 0.25} {
		raw = binary.LittleEndian.AppendUint16(raw, float16.Fromfloat32(v).Bits())
	}

	f = Frame{Stream: 9, Shape: []int{1, 3}, Raw: raw, DType: "FP16"}

	req, err = f.Request()
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 0.25}, req.Tensor.Data)

	f.DType = "int8"
	_, err = f.Request()
	assert.Error(t, err)

	f.DType = "fp32"
	f.Raw = []byte{1, 2, 3}
	_, err = f.Request()
	assert.ErrorIs(t, err, yolotrack.ErrShape)
}

func TestOpen(t *testing.T) {

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "rec.jsonl")
	require.NoError(t, os.WriteFile(jsonPath, []byte(recording), 0o644))

	r, closer, err := Open(jsonPath)
	require.NoError(t, err)
	defer closer.Close()

	_, ok := r.(*JSONLReader)
	assert.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, WriteMsgpack(&buf, Frame{Stream: 5}))

	mpPath := filepath.Join(dir, "rec.MPK")
	require.NoError(t, os.WriteFile(mpPath, buf.Bytes(), 0o644))

	r, closer2, err := Open(mpPath)
	require.NoError(t, err)
	defer closer2.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.Stream)

	_, _, err = Open(filepath.Join(dir, "missing.jsonl"))
	assert.Error(t, err)
}

func TestEncodeResult(t *testing.T) {

	resp := pipeline.Response{
		StreamID: 2,
		Detections: []postprocess.DetectResult{
			{Class: 0, Box: yolotrack.Box{X1: 1, Y1: 2, X2: 30, Y2: 40}, Probability: 0.75},
		},
		Tracks: []tracker.TrackedObject{
			{TrackID: 7, Class: 90, Box: yolotrack.Box{X1: 1, Y1: 2, X2: 30, Y2: 40}, Probability: 0.75},
		},
	}

	out, err := EncodeResult(4, resp, yolotrack.COCOLabels)
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	doc := gjson.Parse(out)
	assert.Equal(t, int64(2), doc.Get("stream").Int())
	assert.Equal(t, int64(4), doc.Get("frame").Int())
	assert.False(t, doc.Get("error").Exists())

	assert.Equal(t, int64(1), doc.Get("detections.#").Int())
	assert.Equal(t, "person", doc.Get("detections.0.label").String())
	assert.InDelta(t, 0.75, doc.Get("detections.0.confidence").Float(), 1e-6)
	assert.Equal(t, float64(30), doc.Get("detections.0.box.2").Float())

	assert.Equal(t, int64(7), doc.Get("tracks.0.id").Int())
	assert.Equal(t, "class_90", doc.Get("tracks.0.label").String())
}

func TestEncodeResultEmptyAndFailed(t *testing.T) {

	out, err := EncodeResult(0, pipeline.Response{StreamID: 1}, nil)
	require.NoError(t, err)

	doc := gjson.Parse(out)
	assert.True(t, doc.Get("detections").IsArray())
	assert.Equal(t, int64(0), doc.Get("detections.#").Int())
	assert.Equal(t, int64(0), doc.Get("tracks.#").Int())

	out, err = EncodeResult(1, pipeline.Response{StreamID: 1, Err: errors.New("bad meta")}, nil)
	require.NoError(t, err)

	doc = gjson.Parse(out)
	assert.Equal(t, "bad meta", doc.Get("error").String())
	assert.False(t, doc.Get("detections").Exists())
}

func TestResultWriter(t *testing.T) {

	var buf bytes.Buffer
	rw := NewResultWriter(&buf, nil)

	for _, id := range []int64{1, 2, 1, 1, 2} {
		require.NoError(t, rw.Write(pipeline.Response{StreamID: id}))
	}

	assert.Equal(t, 3, rw.Frame(1))
	assert.Equal(t, 2, rw.Frame(2))
	assert.Equal(t, 0, rw.Frame(3))

	require.NoError(t, rw.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	frames := make([]int64, len(lines))
	for i, l := range lines {
		frames[i] = gjson.Get(l, "frame").Int()
	}

	assert.Equal(t, []int64{0, 0, 1, 2, 1}, frames)
}

func TestParseJSONFrameRaw(t *testing.T) {

	want := []float32{0.5, -1, 2, 0.25, 8}

	fp32 := make([]byte, 0, 4*len(want))
	fp16 := make([]byte, 0, 2*len(want))

	for _, v := range want {
		fp32 = binary.LittleEndian.AppendUint32(fp32, math.Float32bits(v))
		fp16 = binary.LittleEndian.AppendUint16(fp16, float16.Fromfloat32(v).Bits())
	}

	tests := []struct {
		dtype string
		raw   []byte
	}{
		{"fp32", fp32},
		{"fp16", fp16},
	}

	for _, tc := range tests {
		t.Run(tc.dtype, func(t *testing.T) {

			line := fmt.Sprintf(`{"stream": 1, "shape": [1, 5], "dtype": %q, "raw": %q, "meta": [1]}`,
				tc.dtype, base64.StdEncoding.EncodeToString(tc.raw))

			f, err := ParseJSONFrame([]byte(line))
			require.NoError(t, err)
			assert.Equal(t, tc.raw, f.Raw)
			assert.Nil(t, f.Data)

			req, err := f.Request()
			require.NoError(t, err)
			assert.Equal(t, want, req.Tensor.Data)

			// the buffer survives conversion to msgpack
			var buf bytes.Buffer
			require.NoError(t, WriteMsgpack(&buf, f))

			got, err := NewMsgpackReader(&buf).Next()
			require.NoError(t, err)
			assert.Equal(t, tc.raw, got.Raw)
			assert.Equal(t, tc.dtype, got.DType)
		})
	}

	_, err := ParseJSONFrame([]byte(`{"stream": 1, "shape": [1, 5], "raw": "not base64!"}`))
	assert.Error(t, err)
}

func TestSetFields(t *testing.T) {

	out, err := setFields("{}", []field{
		{"id", int64(3)},
		{"box", []float32{1, 2, 3, 4}},
		{"label", "car"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"box":[1,2,3,4],"label":"car"}`, out)

	// a failing field fails the whole object
	_, err = setFields("{}", []field{{"id", 1}, {"", "empty path"}})
	assert.Error(t, err)
}
