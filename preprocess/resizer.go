package preprocess

import (
	"image"
	"image/color"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MetaTensorLen is the number of values in the META tensor emitted alongside
// each letterboxed frame, the LetterboxMeta values followed by the canvas
// size and two reserved zeros
const MetaTensorLen = 12

// Fill is the gray used for letterbox padding
var Fill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Resizer defines the struct used for letterboxing frames of a fixed source
// size onto the square detector canvas
type Resizer struct {
	// srcWidth and srcHeight are the dimensions of the source frames
	srcWidth  int
	srcHeight int
	// canvas is the width and height of the detector input
	canvas int
	// meta is the letterbox transform applied to every frame
	meta yolotrack.LetterboxMeta
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// padMat holds the padded frame when building blobs
	padMat gocv.Mat
}

// NewResizer returns a resizer used for scaling a frame to the square
// detector input size whilst maintaining frame aspect
func NewResizer(srcWidth, srcHeight, canvas int) (*Resizer, error) {

	meta, err := yolotrack.NewLetterboxMeta(srcWidth, srcHeight, canvas)

	if err != nil {
		return nil, err
	}

	return &Resizer{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		canvas:    canvas,
		meta:      meta,
		tempMat:   gocv.NewMat(),
		padMat:    gocv.NewMat(),
	}, nil
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	if err := r.tempMat.Close(); err != nil {
		return err
	}
	return r.padMat.Close()
}

// Meta returns the letterbox transform applied by the resizer
func (r *Resizer) Meta() yolotrack.LetterboxMeta {
	return r.meta
}

// MetaTensor returns the META tensor values describing the letterbox
func (r *Resizer) MetaTensor() []float32 {
	out := make([]float32, MetaTensorLen)
	copy(out, r.meta.Slice())
	out[yolotrack.MetaLen] = float32(r.canvas)
	return out
}

// LetterBoxResize resizes the src frame onto the canvas whilst maintaining
// frame aspect.  Color is that used for letter box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, c color.RGBA) error {

	if src.Cols() != r.srcWidth || src.Rows() != r.srcHeight {
		return errors.Errorf("frame size %dx%d does not match resizer source size %dx%d",
			src.Cols(), src.Rows(), r.srcWidth, r.srcHeight)
	}

	resizeW := int(r.meta.ResizedW)
	resizeH := int(r.meta.ResizedH)

	gocv.Resize(src, &r.tempMat, image.Pt(resizeW, resizeH), 0, 0, gocv.InterpolationLinear)

	gocv.CopyMakeBorder(r.tempMat, dest,
		int(r.meta.PadTop), int(r.meta.PadBottom),
		int(r.meta.PadLeft), int(r.meta.PadRight),
		gocv.BorderConstant, c)

	return nil
}

// Blob letterboxes a BGR frame and returns it as an NCHW float32 RGB blob
// scaled to [0,1], the detector input layout.  The caller must Close the
// returned Mat.
func (r *Resizer) Blob(src gocv.Mat) (gocv.Mat, error) {

	if err := r.LetterBoxResize(src, &r.padMat, Fill); err != nil {
		return gocv.NewMat(), err
	}

	return gocv.BlobFromImage(r.padMat, 1.0/255.0, image.Pt(r.canvas, r.canvas),
		gocv.NewScalar(0, 0, 0, 0), true, false), nil
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.meta.Scale
}

// XPad returns the left padding used in letterbox resize
func (r *Resizer) XPad() int {
	return int(r.meta.PadLeft)
}

// YPad returns the top padding used in letterbox resize
func (r *Resizer) YPad() int {
	return int(r.meta.PadTop)
}

// SrcWidth returns the width of the source frame
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source frame
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
