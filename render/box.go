package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/postprocess"
	"github.com/lumina-vision/go-yolotrack/render/overlay"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"gocv.io/x/gocv"
)

// boxLabel holds the rendering details of a label drawn above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes renders the bounding boxes around the objects detected,
// colored by class
func DetectionBoxes(img *gocv.Mat, dets []postprocess.DetectResult,
	classNames []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {
		text := fmt.Sprintf("%s %.2f", yolotrack.LabelFor(classNames, det.Class), det.Probability)

		boxLabels = append(boxLabels,
			drawBox(img, det.Box, ClassColor(det.Class), text, font, lineThickness))
	}

	drawLabels(img, boxLabels, font)
}

// TrackerBoxes renders the bounding boxes of the tracked objects, colored
// by track id and labelled with the class name, track id and confidence
func TrackerBoxes(img *gocv.Mat, objs []tracker.TrackedObject,
	classNames []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(objs))

	for _, obj := range objs {
		boxLabels = append(boxLabels,
			drawBox(img, obj.Box, overlay.TrackColor(obj.TrackID),
				overlay.Label(obj, classNames), font, lineThickness))
	}

	drawLabels(img, boxLabels, font)
}

// drawBox draws the rectangle around an object and returns the placement
// of its label
func drawBox(img *gocv.Mat, b yolotrack.Box, clr color.RGBA, text string,
	font Font, lineThickness int) boxLabel {

	boxLeft := int(b.X1)
	boxTop := int(b.Y1)
	boxRight := int(b.X2)
	boxBottom := int(b.Y2)

	gocv.Rectangle(img, image.Rect(boxLeft, boxTop, boxRight, boxBottom), clr, lineThickness)

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (boxLeft + boxRight) / 2

	case Right:
		centerX = boxRight - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = boxLeft + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			boxTop-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, boxTop),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, boxTop-font.BottomPad),
	}
}

// drawLabels draws the labels after all boxes so they are the top most
// layer on the image
func drawLabels(img *gocv.Mat, boxLabels []boxLabel, font Font) {

	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
