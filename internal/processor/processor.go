package processor

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/alexkarpov/image-hosting/internal/model"
)

// upscaleFactor is the factor handed to the super-resolution collaborator.
// The factor requested in the job is accepted by the API but not forwarded;
// upscaling always runs at x2.
const upscaleFactor = 2

// sharpenSigma is the fixed sharpen kernel strength. The sharpen operation
// carries no payload; any value sent with it is ignored.
const sharpenSigma = 1.0

// Upscaler is the external super-resolution collaborator: it takes a loaded
// image and a scale factor and returns the enlarged image or fails.
type Upscaler interface {
	Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error)
}

// stepReporter receives per-step failures that do not abort the pipeline.
type stepReporter interface {
	Error(ctx context.Context, text string)
}

// Processor applies the operations of a job to the image file it references
// and writes the result back in place. Operations always run in the same
// order (width, height, rotate, upscale, blur, sharpen, grayscale) so the
// same job payload always produces the same image.
type Processor struct {
	upscaler Upscaler
	report   stepReporter
}

// New creates a Processor using the given super-resolution collaborator and
// reporter for recovered per-step failures.
func New(u Upscaler, report stepReporter) *Processor {
	return &Processor{upscaler: u, report: report}
}

// Apply runs the full pipeline for one job: load the image at its path,
// apply each present operation in canonical order, and overwrite the file.
// The pipeline holds no state between runs, so a redelivered job simply runs
// again from the current file contents.
func (p *Processor) Apply(ctx context.Context, job model.Job) error {
	src, err := imaging.Open(job.ImagePath)
	if err != nil {
		return fmt.Errorf("could not open image at %s: %w", job.ImagePath, err)
	}

	img := p.transform(ctx, src, job.Operations)

	if err := imaging.Save(img, job.ImagePath); err != nil {
		return fmt.Errorf("could not save image at %s: %w", job.ImagePath, err)
	}

	return nil
}

func (p *Processor) transform(ctx context.Context, img image.Image, ops model.Operations) image.Image {
	// Width and height are independent resizes: each one recomputes only its
	// own dimension against the image's dimensions at that step, so a height
	// resize after a width resize sees the already-changed width.
	if ops.Width != nil {
		img = imaging.Resize(img, *ops.Width, img.Bounds().Dy(), imaging.Lanczos)
	}
	if ops.Height != nil {
		img = imaging.Resize(img, img.Bounds().Dx(), *ops.Height, imaging.Lanczos)
	}

	if ops.Rotate != nil {
		img = imaging.Rotate(img, *ops.Rotate, color.Transparent)
	}

	if ops.Upscale != nil {
		up, err := p.upscaler.Upscale(ctx, img, upscaleFactor)
		if err != nil {
			// The collaborator failing does not fail the job; the pipeline
			// continues with the image as it was before this step.
			p.report.Error(ctx, fmt.Sprintf("Image could not be upscaled, reason: %v", err))
		} else {
			img = up
		}
	}

	if ops.Blur != nil {
		img = imaging.Blur(img, *ops.Blur)
	}

	if ops.Sharpen {
		img = imaging.Sharpen(img, sharpenSigma)
	}

	if ops.Grayscale {
		img = imaging.Grayscale(img)
	}

	return img
}
