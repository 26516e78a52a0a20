package yolotrack

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestTensorMatrixRowMajor(t *testing.T) {

	// 6 candidates with 4 box params and 1 class score
	data := make([]float32, 6*5)
	for i := range data {
		data[i] = float32(i)
	}

	m, err := NewTensor([]int{6, 5}, data).Matrix(nil)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, float64(7), m.At(1, 2))
}

func TestTensorMatrixTransposed(t *testing.T) {

	// native export layout [1, 4+classes, candidates]: 6 rows x 8 candidates
	const features, cands = 6, 8
	data := make([]float32, features*cands)

	for f := 0; f < features; f++ {
		for c := 0; c < cands; c++ {
			data[f*cands+c] = float32(f*100 + c)
		}
	}

	m, err := NewTensor([]int{1, features, cands}, data).Matrix(nil)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, cands, r)
	assert.Equal(t, features, c)

	// candidate 3, feature 5
	assert.Equal(t, float64(503), m.At(3, 5))
}

func TestTensorMatrixReusesDst(t *testing.T) {

	first, err := NewTensor([]int{5, 6}, make([]float32, 30)).Matrix(nil)
	require.NoError(t, err)

	data := make([]float32, 10*5)
	data[9*5+4] = 0.75

	second, err := NewTensor([]int{10, 5}, data).Matrix(first)
	require.NoError(t, err)

	r, c := second.Dims()
	assert.Equal(t, 10, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, 0.75, second.At(9, 4))
}

func TestTensorMatrixEmpty(t *testing.T) {

	for _, shape := range [][]int{{0, 84}, {1, 84, 0}, {1, 0, 8400}} {
		m, err := NewTensor(shape, nil).Matrix(nil)
		assert.NoError(t, err, "shape %v", shape)
		assert.Nil(t, m, "shape %v", shape)
	}
}

func TestTensorMatrixShapeErrors(t *testing.T) {

	tests := []struct {
		name  string
		shape []int
		data  []float32
	}{
		{"rank 1", []int{10}, make([]float32, 10)},
		{"rank 4", []int{1, 1, 2, 5}, make([]float32, 10)},
		{"batch of 2", []int{2, 84, 10}, make([]float32, 2*84*10)},
		{"data length mismatch", []int{10, 6}, make([]float32, 59)},
		{"no class scores", []int{4, 4}, make([]float32, 16)},
		{"no class scores after transpose", []int{3, 100}, make([]float32, 300)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTensor(tc.shape, tc.data).Matrix(nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShape), "got %v", err)
		})
	}
}

func TestNewTensorFromFloat16(t *testing.T) {

	values := []float32{0.5, 0.25, -2, 1024}
	bits := make([]uint16, len(values))

	for i, v := range values {
		bits[i] = float16.Fromfloat32(v).Bits()
	}

	tensor := NewTensorFromFloat16([]int{2, 2}, bits)
	assert.Equal(t, values, tensor.Data)
}

func TestNewTensorFromBytes(t *testing.T) {

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(0.9))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-3))

	tensor, err := NewTensorFromBytes([]int{1, 2}, TensorFloat32, buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, -3}, tensor.Data)

	half := make([]byte, 4)
	binary.LittleEndian.PutUint16(half[0:], float16.Fromfloat32(0.5).Bits())
	binary.LittleEndian.PutUint16(half[2:], float16.Fromfloat32(8).Bits())

	tensor, err = NewTensorFromBytes([]int{2}, TensorFloat16, half)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 8}, tensor.Data)

	_, err = NewTensorFromBytes([]int{1}, TensorFloat32, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrShape))
}
