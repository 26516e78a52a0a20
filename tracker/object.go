package tracker

import (
	"math"

	"github.com/lumina-vision/go-yolotrack"
	"github.com/pkg/errors"
)

// Object represents a detection handed to the tracker, in original frame
// coordinates
type Object struct {
	// Box is the bounding box of the detected object
	Box yolotrack.Box
	// Class is the class id of the object detected
	Class int
	// Prob is the confidence/probability of the object detected
	Prob float32
}

// NewObject is a constructor function for the Object struct
func NewObject(box yolotrack.Box, class int, prob float32) Object {
	return Object{
		Box:   box,
		Class: class,
		Prob:  prob,
	}
}

// validate checks the object can be matched against tracks
func (o Object) validate() error {

	if !o.Box.Valid() {
		return errors.Wrapf(yolotrack.ErrInvalidObject, "non finite box %+v", o.Box)
	}

	if o.Class < 0 {
		return errors.Wrapf(yolotrack.ErrInvalidObject, "negative class %d", o.Class)
	}

	p := float64(o.Prob)

	if math.IsNaN(p) || math.IsInf(p, 0) {
		return errors.Wrapf(yolotrack.ErrInvalidObject, "non finite probability %v", o.Prob)
	}

	return nil
}
