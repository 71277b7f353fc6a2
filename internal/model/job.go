package model

import (
	"errors"
	"fmt"
)

// Job represents an image modification job sent to the worker queue.
// It carries no ID and no result channel: the worker writes the image back
// to Path and reports nothing to the dispatcher.
type Job struct {
	ImagePath  string     `json:"image_path"`
	Operations Operations `json:"operations"`
}

// Operations holds the optional transformations of a job. The worker applies
// them in a fixed order (width, height, rotate, upscale, blur, sharpen,
// grayscale) regardless of the order the fields arrived in, so job execution
// is deterministic. A nil or false field is skipped.
type Operations struct {
	Width     *int     `json:"width,omitempty"`     // target width in pixels
	Height    *int     `json:"height,omitempty"`    // target height in pixels
	Rotate    *float64 `json:"rotate,omitempty"`    // rotation in degrees
	Upscale   *int     `json:"upscale,omitempty"`   // upscale factor (2, 3 or 4)
	Blur      *float64 `json:"blur,omitempty"`      // gaussian blur radius
	Sharpen   bool     `json:"sharpen,omitempty"`   // apply sharpen filter
	Grayscale bool     `json:"grayscale,omitempty"` // convert to grayscale
}

var ErrNoOperations = errors.New("no operations requested")

// Validate checks the ranges enforced at dispatch time. The worker does not
// re-validate; jobs are trusted once they are on the queue.
func (o Operations) Validate() error {
	if o.Width != nil && *o.Width < 1 {
		return errors.New("resolution scales must be higher than 0")
	}
	if o.Height != nil && *o.Height < 1 {
		return errors.New("resolution scales must be higher than 0")
	}
	if o.Rotate != nil && (*o.Rotate <= 0 || *o.Rotate > 360) {
		return errors.New("rotation degrees must be between 0 and 360")
	}
	if o.Upscale != nil && *o.Upscale != 2 && *o.Upscale != 3 && *o.Upscale != 4 {
		return fmt.Errorf("upscale factor must be 2, 3 or 4, got %d", *o.Upscale)
	}
	if o.Width == nil && o.Height == nil && o.Rotate == nil &&
		o.Upscale == nil && o.Blur == nil && !o.Sharpen && !o.Grayscale {
		return ErrNoOperations
	}

	return nil
}
