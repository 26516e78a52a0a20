package replay

import (
	"bufio"
	"io"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/pipeline"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
)

// EncodeResult renders the response of a frame as a JSON object:
// {"stream": 1, "frame": 0, "detections": [...], "tracks": [...]}, failed
// frames carry an "error" instead of detections and tracks
func EncodeResult(frame int, resp pipeline.Response, labels []string) (string, error) {

	out := "{}"
	var err error

	if out, err = sjson.Set(out, "stream", resp.StreamID); err != nil {
		return "", err
	}

	if out, err = sjson.Set(out, "frame", frame); err != nil {
		return "", err
	}

	if resp.Err != nil {
		return sjson.Set(out, "error", resp.Err.Error())
	}

	if out, err = sjson.SetRaw(out, "detections", "[]"); err != nil {
		return "", err
	}

	for _, d := range resp.Detections {

		item, err := setFields("{}", []field{
			{"box", boxSlice(d.Box)},
			{"confidence", d.Probability},
			{"class", d.Class},
			{"label", yolotrack.LabelFor(labels, d.Class)},
		})

		if err != nil {
			return "", err
		}

		if out, err = sjson.SetRaw(out, "detections.-1", item); err != nil {
			return "", err
		}
	}

	if out, err = sjson.SetRaw(out, "tracks", "[]"); err != nil {
		return "", err
	}

	for _, t := range resp.Tracks {

		item, err := setFields("{}", []field{
			{"id", t.TrackID},
			{"box", boxSlice(t.Box)},
			{"confidence", t.Probability},
			{"class", t.Class},
			{"label", yolotrack.LabelFor(labels, t.Class)},
		})

		if err != nil {
			return "", err
		}

		if out, err = sjson.SetRaw(out, "tracks.-1", item); err != nil {
			return "", err
		}
	}

	return out, nil
}

// field is a path and value set on a JSON object
type field struct {
	path  string
	value interface{}
}

// setFields sets every field on the JSON object doc in order
func setFields(doc string, fields []field) (string, error) {

	var err error

	for _, f := range fields {
		if doc, err = sjson.Set(doc, f.path, f.value); err != nil {
			return "", errors.Wrapf(err, "failed to set %q", f.path)
		}
	}

	return doc, nil
}

func boxSlice(b yolotrack.Box) []float32 {
	return []float32{b.X1, b.Y1, b.X2, b.Y2}
}

// ResultWriter writes one JSON line per frame
type ResultWriter struct {
	w      *bufio.Writer
	labels []string
	// frames counts the frames written per stream
	frames map[int64]int
}

// NewResultWriter returns a writer of JSON line results
func NewResultWriter(w io.Writer, labels []string) *ResultWriter {
	return &ResultWriter{
		w:      bufio.NewWriter(w),
		labels: labels,
		frames: make(map[int64]int),
	}
}

// Write writes the result line of the next frame of the response's stream
func (rw *ResultWriter) Write(resp pipeline.Response) error {

	frame := rw.frames[resp.StreamID]
	rw.frames[resp.StreamID]++

	line, err := EncodeResult(frame, resp, rw.labels)

	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}

	if _, err := rw.w.WriteString(line); err != nil {
		return errors.Wrap(err, "failed to write result")
	}

	return rw.w.WriteByte('\n')
}

// Frame returns the index the next frame of a stream will be written with
func (rw *ResultWriter) Frame(streamID int64) int {
	return rw.frames[streamID]
}

// Flush writes any buffered results
func (rw *ResultWriter) Flush() error {
	return rw.w.Flush()
}
