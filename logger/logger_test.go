package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {

	var buf bytes.Buffer

	l, err := New("debug", true, &buf)
	require.NoError(t, err)
	WithStream(logrus.NewEntry(l), 42).Debug("tracking stats")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "tracking stats", line["msg"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, float64(42), line[FieldStream])
	assert.Contains(t, line["file"], "logger_test.go:")
}

func TestNewText(t *testing.T) {

	var buf bytes.Buffer

	l, err := New("info", false, &buf)
	require.NoError(t, err)
	l.Debug("hidden")
	l.WithField(FieldBatch, 3).Info("batch done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=batch done")
	assert.Contains(t, out, "batch=3")
}

func TestNewBadLevel(t *testing.T) {

	var buf bytes.Buffer

	l, err := New("chatty", false, &buf)
	require.Error(t, err)
	assert.Nil(t, l)
	assert.Contains(t, err.Error(), "chatty")

	assert.Error(t, Init("", false))
}

func TestContext(t *testing.T) {

	e := Nop().WithField(FieldBatch, 7)
	ctx := NewContext(context.Background(), e)

	assert.Equal(t, e, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))

	fallback := Nop().WithField(FieldStream, 1)
	assert.Equal(t, e, FromContextOr(ctx, fallback))
	assert.Equal(t, fallback, FromContextOr(context.Background(), fallback))
}
