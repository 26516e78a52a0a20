package config

import (
	"strconv"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Stage names a model of the inference server ensemble whose parameters
// can be read from its model configuration
type Stage string

const (
	StagePostprocess Stage = "postproc"
	StageTracker     Stage = "tracker"
)

// FromModelConfig applies the parameters block of an inference server model
// configuration, in its JSON form, onto cfg.  Every parameter is a
// {"string_value": "..."} object, track_classes holds a JSON list.  Absent
// parameters keep the value already in cfg.
func FromModelConfig(cfg Config, stage Stage, raw []byte) (Config, error) {

	if !gjson.ValidBytes(raw) {
		return cfg, errors.Wrapf(yolotrack.ErrConfig, "%s model config is not valid JSON", stage)
	}

	params := gjson.GetBytes(raw, "parameters")

	switch stage {
	case StagePostprocess:
		if err := floatParam(params, "conf_threshold", &cfg.Postprocess.ConfThreshold); err != nil {
			return cfg, err
		}

		if err := floatParam(params, "iou_threshold", &cfg.Postprocess.NMSThreshold); err != nil {
			return cfg, err
		}

		if v, ok := param(params, "track_classes"); ok {

			list := gjson.Parse(v)

			if !gjson.Valid(v) || !list.IsArray() {
				return cfg, errors.Wrapf(yolotrack.ErrConfig, "track_classes %q is not a JSON list", v)
			}

			classes := make([]int, 0, len(list.Array()))

			for _, c := range list.Array() {
				if c.Type != gjson.Number || c.Num != float64(int(c.Num)) {
					return cfg, errors.Wrapf(yolotrack.ErrConfig, "track_classes entry %s is not an integer", c.Raw)
				}
				classes = append(classes, int(c.Num))
			}

			cfg.Postprocess.TrackClasses = classes
		}

	case StageTracker:
		if err := floatParam(params, "iou_threshold", &cfg.Tracker.IoUThreshold); err != nil {
			return cfg, err
		}

		if v, ok := param(params, "max_age"); ok {

			n, err := strconv.Atoi(v)

			if err != nil {
				return cfg, errors.Wrapf(yolotrack.ErrConfig, "max_age %q is not an integer", v)
			}

			cfg.Tracker.MaxAge = n
		}

	default:
		return cfg, errors.Wrapf(yolotrack.ErrConfig, "unknown stage %q", stage)
	}

	return cfg, cfg.Validate()
}

// param returns the string_value of a named parameter
func param(params gjson.Result, name string) (string, bool) {

	v := params.Get(name + ".string_value")

	if !v.Exists() {
		return "", false
	}

	return v.String(), true
}

// floatParam parses a named parameter into dst when present
func floatParam(params gjson.Result, name string, dst *float32) error {

	v, ok := param(params, name)

	if !ok {
		return nil
	}

	f, err := strconv.ParseFloat(v, 32)

	if err != nil {
		return errors.Wrapf(yolotrack.ErrConfig, "%s %q is not a number", name, v)
	}

	*dst = float32(f)

	return nil
}
