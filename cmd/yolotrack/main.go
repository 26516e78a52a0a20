// Command yolotrack runs recorded YOLOv8 detector outputs through the post
// processing and tracking pipeline.
package main

import (
	"os"

	"github.com/lumina-vision/go-yolotrack/config"
	"github.com/lumina-vision/go-yolotrack/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath          string
	postprocModelConfig string
	trackerModelConfig  string
	logLevel            string
	logJSON             bool
)

var rootCmd = &cobra.Command{
	Use:   "yolotrack",
	Short: "YOLOv8 post processing and multi stream IoU tracking",
	Long: `yolotrack decodes YOLOv8 detector outputs, suppresses overlapping
detections, maps them back to the original frame and tracks objects per
video stream.

Examples:
  yolotrack replay --in frames.jsonl          # track a recording
  yolotrack replay --in frames.mpk --out r.jsonl --metrics-addr :9100
  yolotrack pack --in frames.jsonl --out frames.mpk
  yolotrack config --config yolotrack.yaml    # print effective config`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file, YAML or TOML")
	rootCmd.PersistentFlags().StringVar(&postprocModelConfig, "postproc-model-config", "", "model config JSON of the postproc stage overriding its parameters")
	rootCmd.PersistentFlags().StringVar(&trackerModelConfig, "tracker-model-config", "", "model config JSON of the tracker stage overriding its parameters")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log JSON lines, overrides the configuration")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration file, applies the model config stage
// overrides and configures logging from the result
func loadConfig(cmd *cobra.Command) (config.Config, error) {

	cfg, err := config.Load(configPath)

	if err != nil {
		return config.Config{}, err
	}

	stages := []struct {
		stage config.Stage
		path  string
	}{
		{config.StagePostprocess, postprocModelConfig},
		{config.StageTracker, trackerModelConfig},
	}

	for _, s := range stages {
		if s.path == "" {
			continue
		}

		raw, err := os.ReadFile(s.path)

		if err != nil {
			return config.Config{}, errors.Wrapf(err, "failed to read %s model config", s.stage)
		}

		if cfg, err = config.FromModelConfig(cfg, s.stage, raw); err != nil {
			return config.Config{}, err
		}
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = logJSON
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("yolotrack: %v", err)
		os.Exit(1)
	}
}
