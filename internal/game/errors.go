package game

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed is returned when model text does not follow the
	// output format.
	ErrValidationFailed = errors.New("model output failed validation")
	// ErrImageRejected is returned when the image model declines to produce
	// an image or returns bytes that are not an image.
	ErrImageRejected = errors.New("image rejected")
	// ErrRequestFailed wraps provider and network failures.
	ErrRequestFailed = errors.New("model request failed")
)

// Side names the half of a turn that failed.
type Side string

const (
	SideText  Side = "text"
	SideImage Side = "image"
)

// TurnError is the failure of a turn's completion.
type TurnError struct {
	Side Side
	Err  error
}

func (e *TurnError) Error() string { return fmt.Sprintf("%s: %v", e.Side, e.Err) }

func (e *TurnError) Unwrap() error { return e.Err }
