// Package config loads and validates the pipeline configuration.
package config

import (
	"strings"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the complete pipeline configuration
type Config struct {
	Postprocess PostprocessConfig `mapstructure:"postprocess" yaml:"postprocess"`
	Tracker     TrackerConfig     `mapstructure:"tracker" yaml:"tracker"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// PostprocessConfig configures decoding and suppression
type PostprocessConfig struct {
	ConfThreshold float32 `mapstructure:"conf_threshold" yaml:"conf_threshold"`
	NMSThreshold  float32 `mapstructure:"nms_threshold" yaml:"nms_threshold"`
	TrackClasses  []int   `mapstructure:"track_classes" yaml:"track_classes"`
	// Labels is an optional labels file, one class name per line, used to
	// resolve TrackedLabels and to name classes in rendered output
	Labels string `mapstructure:"labels" yaml:"labels,omitempty"`
	// TrackedLabels replaces TrackClasses with the ids of the named classes
	TrackedLabels []string `mapstructure:"tracked_labels" yaml:"tracked_labels,omitempty"`
	NumClasses    int      `mapstructure:"num_classes" yaml:"num_classes"`
	MaxDetections int      `mapstructure:"max_detections" yaml:"max_detections"`
	ClassAware    bool     `mapstructure:"class_aware" yaml:"class_aware"`
}

// TrackerConfig configures the tracker
type TrackerConfig struct {
	IoUThreshold float32 `mapstructure:"iou_threshold" yaml:"iou_threshold"`
	MaxAge       int     `mapstructure:"max_age" yaml:"max_age"`
	// TrailSize is the number of center points kept per track for trail
	// rendering, zero disables trails
	TrailSize int `mapstructure:"trail_size" yaml:"trail_size"`
}

// PipelineConfig configures frame execution
type PipelineConfig struct {
	// Workers is the number of decoders frames are processed on concurrently
	Workers int `mapstructure:"workers" yaml:"workers"`
	// CanvasSize is the square detector input size
	CanvasSize int `mapstructure:"canvas_size" yaml:"canvas_size"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// MetricsConfig configures the metrics endpoint
type MetricsConfig struct {
	// Addr is the listen address of the metrics endpoint, empty to disable
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LabelNames returns the class names, the labels file when one is
// configured otherwise the COCO class names
func (c Config) LabelNames() ([]string, error) {

	if c.Postprocess.Labels == "" {
		return yolotrack.COCOLabels, nil
	}

	return yolotrack.LoadLabels(c.Postprocess.Labels)
}

// YOLOv8Params returns the decoder parameters, resolving TrackedLabels to
// class ids when set
func (c Config) YOLOv8Params() (postprocess.YOLOv8Params, error) {

	p := postprocess.YOLOv8Params{
		ConfThreshold:  c.Postprocess.ConfThreshold,
		NMSThreshold:   c.Postprocess.NMSThreshold,
		TrackedClasses: append([]int(nil), c.Postprocess.TrackClasses...),
		NumClasses:     c.Postprocess.NumClasses,
		MaxDetections:  c.Postprocess.MaxDetections,
		ClassAware:     c.Postprocess.ClassAware,
	}

	if len(c.Postprocess.TrackedLabels) > 0 {

		labels, err := c.LabelNames()

		if err != nil {
			return p, errors.Wrap(yolotrack.ErrConfig, err.Error())
		}

		ids, err := yolotrack.ClassIDs(labels, c.Postprocess.TrackedLabels)

		if err != nil {
			return p, err
		}

		p.TrackedClasses = ids
	}

	return p, p.Validate()
}

// TrackerParams returns the tracker parameters
func (c Config) TrackerParams() tracker.Params {
	return tracker.Params{
		IoUThreshold: c.Tracker.IoUThreshold,
		MaxAge:       c.Tracker.MaxAge,
	}
}

// Validate checks the whole configuration and reports every problem found
func (c Config) Validate() error {

	var problems []string

	if _, err := c.YOLOv8Params(); err != nil {
		problems = append(problems, err.Error())
	}

	if err := c.TrackerParams().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Tracker.TrailSize < 0 {
		problems = append(problems, "negative trail size")
	}

	if c.Pipeline.Workers < 1 {
		problems = append(problems, "pipeline needs at least one worker")
	}

	if c.Pipeline.CanvasSize < 1 {
		problems = append(problems, "canvas size must be positive")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) == 0 {
		return nil
	}

	return errors.Wrap(yolotrack.ErrConfig, strings.Join(problems, "; "))
}

// YAML renders the configuration as YAML
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "error rendering config")
	}
	return out, nil
}
