package yolotrack

import "github.com/pkg/errors"

var (
	// ErrShape is returned when a detector tensor can not be interpreted as
	// a [candidates, 4+classes] matrix, even after orientation normalisation
	ErrShape = errors.New("unusable tensor shape")
	// ErrMeta is returned for letterbox metadata that can not be inverted
	ErrMeta = errors.New("invalid letterbox metadata")
	// ErrConfig is returned for configuration values rejected at startup
	ErrConfig = errors.New("invalid configuration")
	// ErrInvalidObject is returned when a detection handed to the tracker has
	// non finite coordinates or a negative class
	ErrInvalidObject = errors.New("invalid detection object")
)
