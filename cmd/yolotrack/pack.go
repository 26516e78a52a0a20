package main

import (
	"bufio"
	"io"
	"os"

	"github.com/lumina-vision/go-yolotrack/internal/replay"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	packIn  string
	packOut string
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Convert a JSON lines recording into length prefixed msgpack",
	RunE: func(cmd *cobra.Command, args []string) error {

		if _, err := loadConfig(cmd); err != nil {
			return err
		}

		in, err := os.Open(packIn)

		if err != nil {
			return errors.Wrap(err, "error opening recording")
		}
		defer in.Close()

		out, err := os.Create(packOut)

		if err != nil {
			return errors.Wrap(err, "failed to create msgpack recording")
		}
		defer out.Close()

		n, err := pack(replay.NewJSONLReader(in), out)

		if err != nil {
			return err
		}

		log.Infof("packed %d frames into %s", n, packOut)

		return nil
	},
}

func init() {
	packCmd.Flags().StringVarP(&packIn, "in", "i", "", "JSON lines recording")
	packCmd.Flags().StringVarP(&packOut, "out", "o", "", "msgpack recording to write")
	_ = packCmd.MarkFlagRequired("in")
	_ = packCmd.MarkFlagRequired("out")
}

// pack copies every frame of r to w as msgpack and returns the frame count
func pack(r replay.Reader, w io.Writer) (int, error) {

	bw := bufio.NewWriter(w)
	n := 0

	for {
		f, err := r.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return n, err
		}

		if err := replay.WriteMsgpack(bw, f); err != nil {
			return n, err
		}

		n++
	}

	return n, bw.Flush()
}
