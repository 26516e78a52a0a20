package yolotrack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {
	file := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(file, []byte("person\n bicycle \ncar\n"), 0o644))

	labels, err := LoadLabels(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestClassIDs(t *testing.T) {
	ids, err := ClassIDs(COCOLabels, []string{"person", "car", " truck"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 7}, ids)

	_, err = ClassIDs(COCOLabels, []string{"unicorn"})
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "person", LabelFor(COCOLabels, 0))
	assert.Equal(t, "class_95", LabelFor(COCOLabels, 95))
	assert.Equal(t, "class_-1", LabelFor(nil, -1))
}
