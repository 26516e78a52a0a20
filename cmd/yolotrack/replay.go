package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/config"
	"github.com/lumina-vision/go-yolotrack/internal/replay"
	"github.com/lumina-vision/go-yolotrack/logger"
	"github.com/lumina-vision/go-yolotrack/metrics"
	"github.com/lumina-vision/go-yolotrack/pipeline"
	"github.com/lumina-vision/go-yolotrack/render/overlay"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	replayIn      string
	replayOut     string
	replayMetrics string
	replayBatch   int
	replayDraw    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a recording of detector outputs through the pipeline",
	Long: `Reads recorded frames, JSON lines or length prefixed msgpack by file
extension, runs them through post processing and tracking in batches and
writes one JSON line per frame with its detections and tracks.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayIn, "in", "i", "", "recording to replay (.jsonl, .msgpack or .mpk)")
	replayCmd.Flags().StringVarP(&replayOut, "out", "o", "", "results file, stdout when empty")
	replayCmd.Flags().StringVar(&replayMetrics, "metrics-addr", "", "serve prometheus metrics on this address, overrides the configuration")
	replayCmd.Flags().IntVarP(&replayBatch, "batch", "b", 16, "frames processed per batch")
	replayCmd.Flags().StringVar(&replayDraw, "draw", "", "directory to write a PNG track plot per frame to, trails show the history at the end of each batch")
	_ = replayCmd.MarkFlagRequired("in")
}

func runReplay(cmd *cobra.Command, args []string) error {

	cfg, err := loadConfig(cmd)

	if err != nil {
		return err
	}

	if replayBatch < 1 {
		return errors.Errorf("batch size must be positive, got %d", replayBatch)
	}

	labels, err := cfg.LabelNames()

	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var trail *tracker.Trail
	if cfg.Tracker.TrailSize > 0 {
		trail = tracker.NewTrail(cfg.Tracker.TrailSize)
	}

	p, m, err := newPipeline(cfg, trail)

	if err != nil {
		return err
	}

	addr := cfg.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		addr = replayMetrics
	}

	if addr != "" {
		srv := serveMetrics(addr, m)
		defer srv.Shutdown(context.Background())
	}

	reader, closer, err := replay.Open(replayIn)

	if err != nil {
		return err
	}
	defer closer.Close()

	var out io.Writer = os.Stdout

	if replayOut != "" {
		f, err := os.Create(replayOut)

		if err != nil {
			return errors.Wrap(err, "failed to create results file")
		}
		defer f.Close()

		out = f
	}

	if replayDraw != "" {
		if err := os.MkdirAll(replayDraw, 0o755); err != nil {
			return errors.Wrap(err, "failed to create draw directory")
		}
	}

	rw := replay.NewResultWriter(out, labels)
	r := &replayer{
		pipeline: p,
		metrics:  m,
		writer:   rw,
		labels:   labels,
		trail:    trail,
		drawDir:  replayDraw,
	}

	start := time.Now()
	frames, err := r.run(ctx, reader, replayBatch)

	if ferr := rw.Flush(); ferr != nil && err == nil {
		err = errors.Wrap(ferr, "failed to flush results")
	}

	log.WithFields(log.Fields{
		"frames":  frames,
		"streams": len(p.Tracker().Streams()),
		"tracks":  p.Tracker().Len(),
		"elapsed": time.Since(start).String(),
	}).Info("replay finished")

	return err
}

// newPipeline builds the pipeline with metrics over the tracker it runs
func newPipeline(cfg config.Config, trail *tracker.Trail) (*pipeline.Pipeline, *metrics.Metrics, error) {

	params, err := cfg.YOLOv8Params()

	if err != nil {
		return nil, nil, err
	}

	tr, err := tracker.New(cfg.TrackerParams())

	if err != nil {
		return nil, nil, err
	}

	tr.SetLogger(log.StandardLogger())
	m := metrics.New(tr.Len)

	opts := []pipeline.Option{
		pipeline.WithCanvasSize(cfg.Pipeline.CanvasSize),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(log.StandardLogger()),
	}

	if trail != nil {
		opts = append(opts, pipeline.WithTrail(trail))
	}

	p, err := pipeline.New(params, tr, cfg.Pipeline.Workers, opts...)

	if err != nil {
		return nil, nil, err
	}

	return p, m, nil
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server failed: %v", err)
		}
	}()

	return srv
}

// replayer feeds recorded frames through the pipeline in batches
type replayer struct {
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	writer   *replay.ResultWriter
	labels   []string
	trail    *tracker.Trail
	// drawDir receives a PNG per frame when set
	drawDir string
}

// run replays all frames of the reader and returns the number of frames
// written.  Frames that cannot be converted into a request are written as
// failed after the frames read before them.
func (r *replayer) run(ctx context.Context, reader replay.Reader, batchSize int) (int, error) {

	total := 0
	batches := 0
	batch := make([]pipeline.Request, 0, batchSize)
	entry := logger.FromContext(ctx)

	flush := func() error {

		if len(batch) == 0 {
			return ctx.Err()
		}

		bctx := logger.NewContext(ctx, entry.WithField(logger.FieldBatch, batches))
		batches++

		resps := r.pipeline.ProcessBatch(bctx, batch)

		for i, resp := range resps {
			if err := r.write(resp, batch[i].Meta); err != nil {
				return err
			}
			total++
		}

		batch = batch[:0]

		return ctx.Err()
	}

	for {
		frame, err := reader.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return total, err
		}

		req, err := frame.Request()

		if err != nil {
			if err := flush(); err != nil {
				return total, err
			}

			r.metrics.FrameFailed()
			log.WithField("stream", frame.Stream).Warnf("failed to convert frame: %v", err)

			resp := pipeline.Response{
				StreamID: frame.Stream,
				Err:      errors.Wrapf(err, "stream %d", frame.Stream),
			}

			if err := r.write(resp, nil); err != nil {
				return total, err
			}
			total++

			continue
		}

		batch = append(batch, req)

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	return total, flush()
}

func (r *replayer) write(resp pipeline.Response, meta []float32) error {

	frame := r.writer.Frame(resp.StreamID)

	if err := r.writer.Write(resp); err != nil {
		return err
	}

	if r.drawDir == "" || resp.Err != nil {
		return nil
	}

	return r.draw(resp, meta, frame)
}

// draw writes a plot of the tracked objects of a frame on a canvas the size
// of the original frame
func (r *replayer) draw(resp pipeline.Response, meta []float32, frame int) error {

	lm, err := yolotrack.MetaFromSlice(meta)

	if err != nil {
		return err
	}

	img := overlay.NewCanvas(int(lm.OrigW), int(lm.OrigH))

	if r.trail != nil {
		overlay.Trails(img, resp.StreamID, resp.Tracks, r.trail)
	}

	overlay.Tracks(img, resp.Tracks, r.labels, overlay.DefaultStyle())

	name := filepath.Join(r.drawDir, fmt.Sprintf("stream%d_%06d.png", resp.StreamID, frame))
	f, err := os.Create(name)

	if err != nil {
		return errors.Wrap(err, "failed to create plot")
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "failed to encode plot %s", name)
	}

	return nil
}
