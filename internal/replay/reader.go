package replay

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/vmihailenco/msgpack/v5"
)

// maxLine is the longest JSON line accepted, a 84x8400 FP32 tensor printed
// as JSON fits comfortably
const maxLine = 64 << 20

// Reader returns recorded frames in order, io.EOF after the last one
type Reader interface {
	Next() (Frame, error)
}

// JSONLReader reads frames stored one JSON object per line:
// {"stream": 1, "shape": [1, 84, 8400], "data": [...], "meta": [...]}
// A raw little endian tensor buffer is stored base64 encoded in "raw" with
// its element type in "dtype" instead of "data".
type JSONLReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLReader returns a reader of JSON line frames
func NewJSONLReader(r io.Reader) *JSONLReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 1<<20), maxLine)
	return &JSONLReader{scanner: s}
}

// Next returns the next frame, blank lines are skipped
func (r *JSONLReader) Next() (Frame, error) {

	for r.scanner.Scan() {

		r.line++
		line := r.scanner.Bytes()

		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		f, err := ParseJSONFrame(line)

		if err != nil {
			return Frame{}, errors.Wrapf(err, "line %d", r.line)
		}

		return f, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, errors.Wrap(err, "error reading frames")
	}

	return Frame{}, io.EOF
}

// ParseJSONFrame parses a single JSON frame
func ParseJSONFrame(line []byte) (Frame, error) {

	if !gjson.ValidBytes(line) {
		return Frame{}, errors.New("invalid JSON frame")
	}

	doc := gjson.ParseBytes(line)

	stream := doc.Get("stream")
	if !stream.Exists() {
		return Frame{}, errors.New("frame has no stream")
	}

	f := Frame{
		Stream: stream.Int(),
		DType:  doc.Get("dtype").String(),
	}

	doc.Get("shape").ForEach(func(_, v gjson.Result) bool {
		f.Shape = append(f.Shape, int(v.Int()))
		return true
	})

	if raw := doc.Get("raw"); raw.Exists() {

		buf, err := base64.StdEncoding.DecodeString(raw.String())

		if err != nil {
			return Frame{}, errors.Wrap(err, "raw tensor is not base64")
		}

		f.Raw = buf
	}

	f.Data = floats(doc.Get("data"))
	f.Meta = floats(doc.Get("meta"))

	return f, nil
}

func floats(v gjson.Result) []float32 {

	arr := v.Array()

	if len(arr) == 0 {
		return nil
	}

	out := make([]float32, len(arr))

	for i, x := range arr {
		out[i] = float32(x.Float())
	}

	return out
}

// MsgpackReader reads msgpack encoded frames each preceded by its length as
// a 4 byte big endian integer
type MsgpackReader struct {
	r      *bufio.Reader
	lenBuf [4]byte
}

// NewMsgpackReader returns a reader of length prefixed msgpack frames
func NewMsgpackReader(r io.Reader) *MsgpackReader {
	return &MsgpackReader{r: bufio.NewReader(r)}
}

// Next returns the next frame
func (r *MsgpackReader) Next() (Frame, error) {

	if _, err := io.ReadFull(r.r, r.lenBuf[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(err, "failed to read frame length")
	}

	n := binary.BigEndian.Uint32(r.lenBuf[:])

	if n > maxLine {
		return Frame{}, errors.Errorf("frame of %d bytes exceeds limit", n)
	}

	buf := make([]byte, n)

	if _, err := io.ReadFull(r.r, buf); err != nil {
		return Frame{}, errors.Wrap(err, "failed to read frame data")
	}

	var f Frame

	if err := msgpack.Unmarshal(buf, &f); err != nil {
		return Frame{}, errors.Wrap(err, "failed to unmarshal frame")
	}

	return f, nil
}

// WriteMsgpack writes a length prefixed msgpack frame
func WriteMsgpack(w io.Writer, f Frame) error {

	data, err := msgpack.Marshal(&f)

	if err != nil {
		return errors.Wrap(err, "failed to marshal frame")
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "failed to write frame length")
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write frame data")
	}

	return nil
}

// IsMsgpack reports whether path names a msgpack recording by its extension
func IsMsgpack(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return true
	}
	return false
}

// Open opens a recording, msgpack or JSON lines by extension
func Open(path string) (Reader, io.Closer, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, nil, errors.Wrap(err, "error opening recording")
	}

	if IsMsgpack(path) {
		return NewMsgpackReader(f), f, nil
	}

	return NewJSONLReader(f), f, nil
}
