// Package logger configures logrus for the pipeline and provides the entries
// the stages log through.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// FieldStream is the log field holding the stream id
	FieldStream = "stream"
	// FieldBatch is the log field holding the batch id
	FieldBatch = "batch"
)

type ctxKey struct{}

// Init configures the standard logger with the given level, writing text
// lines to stderr or JSON lines when json is set
func Init(level string, json bool) error {
	return configure(logrus.StandardLogger(), level, json, os.Stderr)
}

// New returns an independent logger configured like Init writing to w
func New(level string, json bool, w io.Writer) (*logrus.Logger, error) {

	l := logrus.New()

	if err := configure(l, level, json, w); err != nil {
		return nil, err
	}

	return l, nil
}

// Nop returns an entry that discards everything logged to it
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func configure(l *logrus.Logger, level string, json bool, w io.Writer) error {

	lvl, err := logrus.ParseLevel(level)

	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}

	l.SetLevel(lvl)
	l.SetOutput(w)
	l.SetReportCaller(true)

	if json {
		l.SetFormatter(&logrus.JSONFormatter{
			CallerPrettyfier: caller,
		})
		return nil
	}

	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05",
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		CallerPrettyfier: caller,
	})

	return nil
}

func caller(frame *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
}

// WithStream returns the entry with the stream id field set
func WithStream(e *logrus.Entry, streamID int64) *logrus.Entry {
	return e.WithField(FieldStream, streamID)
}

// NewContext returns a context carrying the entry
func NewContext(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the entry carried by ctx or an entry of the standard
// logger
func FromContext(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// FromContextOr returns the entry carried by ctx or fallback when ctx
// carries none
func FromContextOr(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return fallback
}
