package yolotrack

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TensorType is the element type of a raw tensor buffer
type TensorType int

const (
	TensorFloat32 TensorType = 0
	TensorFloat16 TensorType = 1
)

// String returns a readable name of the tensor type
func (t TensorType) String() string {
	switch t {
	case TensorFloat32:
		return "FP32"
	case TensorFloat16:
		return "FP16"
	}
	return "UNKNOWN"
}

// boxParams is the number of box parameters (cx, cy, w, h) preceding the
// class scores of each candidate
const boxParams = 4

// Tensor is a raw detector output tensor.  Data is stored row major in the
// order given by Shape.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor returns a tensor over the given float32 data
func NewTensor(shape []int, data []float32) Tensor {
	return Tensor{
		Shape: shape,
		Data:  data,
	}
}

// NewTensorFromFloat16 returns a tensor converting the half precision values
// given as their IEEE 754 bit patterns
func NewTensorFromFloat16(shape []int, data []uint16) Tensor {
	return Tensor{
		Shape: shape,
		Data:  convertFloat16BufferToFloat32(data),
	}
}

// NewTensorFromBytes returns a tensor from a little endian raw buffer as
// delivered by an inference server
func NewTensorFromBytes(shape []int, dtype TensorType, buf []byte) (Tensor, error) {

	switch dtype {
	case TensorFloat32:
		if len(buf)%4 != 0 {
			return Tensor{}, errors.Wrapf(ErrShape, "FP32 buffer length %d is not a multiple of 4", len(buf))
		}

		data := make([]float32, len(buf)/4)

		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}

		return NewTensor(shape, data), nil

	case TensorFloat16:
		if len(buf)%2 != 0 {
			return Tensor{}, errors.Wrapf(ErrShape, "FP16 buffer length %d is not a multiple of 2", len(buf))
		}

		bits := make([]uint16, len(buf)/2)

		for i := range bits {
			bits[i] = binary.LittleEndian.Uint16(buf[i*2:])
		}

		return NewTensorFromFloat16(shape, bits), nil
	}

	return Tensor{}, errors.Errorf("unsupported tensor type %v", dtype)
}

// NumElements returns the number of elements described by the tensor shape
func (t Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}

	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// dims returns the rank 2 dimensions of the tensor after dropping a leading
// batch dimension of size 1
func (t Tensor) dims() (rows int, cols int, err error) {

	for _, d := range t.Shape {
		if d < 0 {
			return 0, 0, errors.Wrapf(ErrShape, "negative dimension in %v", t.Shape)
		}
	}

	if t.NumElements() != len(t.Data) {
		return 0, 0, errors.Wrapf(ErrShape, "shape %v needs %d elements, got %d",
			t.Shape, t.NumElements(), len(t.Data))
	}

	switch len(t.Shape) {
	case 2:
		return t.Shape[0], t.Shape[1], nil

	case 3:
		if t.Shape[0] != 1 {
			return 0, 0, errors.Wrapf(ErrShape, "batch dimension %d in %v, expected 1",
				t.Shape[0], t.Shape)
		}
		return t.Shape[1], t.Shape[2], nil
	}

	return 0, 0, errors.Wrapf(ErrShape, "rank %d tensor %v, expected rank 2 or 3",
		len(t.Shape), t.Shape)
}

// Matrix normalises the tensor into a [candidates, 4+classes] matrix.  When
// the leading dimension is smaller than the trailing one the tensor is
// treated as transposed ([4+classes, candidates], the native YOLOv8 export
// layout) and the axes are swapped.  A tensor with no elements returns a nil
// matrix and no error.
//
// dst is reused as the backing store when not nil, allowing callers that
// process many frames to avoid reallocating the matrix.
func (t Tensor) Matrix(dst *mat.Dense) (*mat.Dense, error) {

	rows, cols, err := t.dims()

	if err != nil {
		return nil, err
	}

	if rows == 0 || cols == 0 {
		return nil, nil
	}

	transpose := rows < cols
	outRows, outCols := rows, cols

	if transpose {
		outRows, outCols = cols, rows
	}

	if outCols < boxParams+1 {
		return nil, errors.Wrapf(ErrShape, "candidate width %d of %v leaves no class scores",
			outCols, t.Shape)
	}

	if dst == nil {
		dst = mat.NewDense(outRows, outCols, nil)
	} else {
		dst.Reset()
		dst.ReuseAs(outRows, outCols)
	}

	raw := dst.RawMatrix()

	for i := 0; i < rows; i++ {
		src := t.Data[i*cols : (i+1)*cols]

		for j, v := range src {
			if transpose {
				raw.Data[j*raw.Stride+i] = float64(v)
			} else {
				raw.Data[i*raw.Stride+j] = float64(v)
			}
		}
	}

	return dst, nil
}
