package config

import (
	"path/filepath"
	"strings"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration
// values, eg: YOLOTRACK_TRACKER_MAX_AGE
const EnvPrefix = "YOLOTRACK"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Decoder and suppression defaults
	v.SetDefault("postprocess.conf_threshold", 0.25)
	v.SetDefault("postprocess.nms_threshold", 0.45)
	v.SetDefault("postprocess.track_classes", []int{0, 1, 2, 3, 4})
	v.SetDefault("postprocess.labels", "")
	v.SetDefault("postprocess.tracked_labels", []string{})
	v.SetDefault("postprocess.num_classes", 0)    // taken from the tensor
	v.SetDefault("postprocess.max_detections", 0) // unlimited
	v.SetDefault("postprocess.class_aware", false)

	// Tracker defaults
	v.SetDefault("tracker.iou_threshold", 0.45)
	v.SetDefault("tracker.max_age", 30)
	v.SetDefault("tracker.trail_size", 30)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.canvas_size", yolotrack.DefaultCanvasSize)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("metrics.addr", "")
}

// NewViper returns a viper instance with defaults set and environment
// variable overrides bound
func NewViper() *viper.Viper {

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	return v
}

// Default returns the default configuration with environment overrides
// applied
func Default() (Config, error) {
	return LoadWithViper(NewViper())
}

// Load reads the configuration file at path, YAML or TOML by extension,
// over the defaults and environment overrides.  An empty path loads the
// defaults only.  The configuration is validated.
func Load(path string) (Config, error) {

	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			v.SetConfigType("toml")
		default:
			v.SetConfigType("yaml")
		}

		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper loads and validates the configuration using a provided
// viper instance
func LoadWithViper(v *viper.Viper) (Config, error) {

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(yolotrack.ErrConfig, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
