// Package overlay draws tracked objects onto in memory RGBA images without
// requiring OpenCV, used for track plots of replayed streams.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/lumina-vision/go-yolotrack/tracker"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// trackPalette are the colors tracks are painted with, picked by track id
var trackPalette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 159, B: 56, A: 255},
	{R: 255, G: 255, B: 56, A: 255},
	{R: 56, G: 255, B: 56, A: 255},
	{R: 56, G: 255, B: 255, A: 255},
	{R: 56, G: 56, B: 255, A: 255},
	{R: 255, G: 56, B: 255, A: 255},
	{R: 128, G: 128, B: 128, A: 255},
}

// Background is the color of blank track plot canvases
var Background = color.RGBA{R: 32, G: 32, B: 32, A: 255}

// TrackColor returns the color used for a track id
func TrackColor(id int64) color.RGBA {
	if id < 0 {
		id = -id
	}
	return trackPalette[id%int64(len(trackPalette))]
}

// Label returns the caption drawn above a tracked object
func Label(obj tracker.TrackedObject, labels []string) string {
	return fmt.Sprintf("%s ID:%d %.2f", yolotrack.LabelFor(labels, obj.Class),
		obj.TrackID, obj.Probability)
}

// Style defines the parameters used for drawing on RGBA images
type Style struct {
	// LineThickness is the width in pixels of box outlines
	LineThickness int
	// TextColor is the color of label text
	TextColor color.RGBA
	// Pad is the padding in pixels around label text
	Pad int
}

// DefaultStyle returns default overlay settings
func DefaultStyle() Style {
	return Style{
		LineThickness: 2,
		TextColor:     color.RGBA{A: 255},
		Pad:           3,
	}
}

// NewCanvas returns a blank canvas of the given size filled with Background
func NewCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	return img
}

// Tracks draws the tracked objects onto img with a label above each box
func Tracks(img *image.RGBA, objs []tracker.TrackedObject, labels []string, style Style) {

	face := basicfont.Face7x13

	for _, obj := range objs {

		clr := TrackColor(obj.TrackID)
		rect := boxRect(obj.Box)

		Rectangle(img, rect, clr, style.LineThickness)

		text := Label(obj, labels)

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(style.TextColor),
			Face: face,
		}

		width := d.MeasureString(text).Ceil()
		height := face.Metrics().Height.Ceil()

		// label box sits on top of the bounding box, or inside it when there
		// is no room above
		top := rect.Min.Y - height - 2*style.Pad
		if top < img.Bounds().Min.Y {
			top = rect.Min.Y
		}

		bg := image.Rect(rect.Min.X, top, rect.Min.X+width+2*style.Pad, top+height+2*style.Pad)
		draw.Draw(img, bg.Intersect(img.Bounds()), image.NewUniform(clr), image.Point{}, draw.Src)

		d.Dot = fixed.Point26_6{
			X: fixed.I(bg.Min.X + style.Pad),
			Y: fixed.I(bg.Min.Y + style.Pad + face.Metrics().Ascent.Ceil()),
		}
		d.DrawString(text)
	}
}

// Rectangle draws the outline of rect with the given line thickness
func Rectangle(img *image.RGBA, rect image.Rectangle, clr color.RGBA, thickness int) {

	if thickness < 1 {
		thickness = 1
	}

	src := image.NewUniform(clr)
	bounds := img.Bounds()

	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X+1, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness+1, rect.Max.X+1, rect.Max.Y+1),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y+1),
		image.Rect(rect.Max.X-thickness+1, rect.Min.Y, rect.Max.X+1, rect.Max.Y+1),
	}

	for _, e := range edges {
		draw.Draw(img, e.Intersect(bounds), src, image.Point{}, draw.Src)
	}
}

// boxRect converts a box to integer pixel corners, both inclusive
func boxRect(b yolotrack.Box) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(int(b.X1), int(b.Y1)),
		Max: image.Pt(int(b.X2), int(b.Y2)),
	}
}

// Trails draws the center point history of the tracked objects of a stream
// as polylines in the track color
func Trails(img *image.RGBA, streamID int64, objs []tracker.TrackedObject, trail *tracker.Trail) {

	for _, obj := range objs {

		points := trail.GetPoints(streamID, obj.TrackID)
		clr := TrackColor(obj.TrackID)

		for i := 1; i < len(points); i++ {
			Line(img, image.Pt(points[i-1].X, points[i-1].Y),
				image.Pt(points[i].X, points[i].Y), clr)
		}
	}
}

// Line draws a one pixel wide line from p0 to p1 inclusive
func Line(img *image.RGBA, p0, p1 image.Point, clr color.RGBA) {

	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1

	if p0.X > p1.X {
		sx = -1
	}

	if p0.Y > p1.Y {
		sy = -1
	}

	bounds := img.Bounds()
	e := dx + dy
	x, y := p0.X, p0.Y

	for {
		if image.Pt(x, y).In(bounds) {
			img.SetRGBA(x, y, clr)
		}

		if x == p1.X && y == p1.Y {
			return
		}

		e2 := 2 * e

		if e2 >= dy {
			e += dy
			x += sx
		}

		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
