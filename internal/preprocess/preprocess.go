// Package preprocess improves scanned-document images before recognition.
//
// The pipeline applies up to four independently togglable steps in a fixed
// order: denoise, deskew, contrast, sharpen. Denoising runs before deskewing
// so the skew estimate is not corrupted by sensor noise, and contrast
// normalization runs before sharpening so the unsharp mask operates on a
// normalized histogram.
//
// Every step is a pure function of its input image and is best-effort: a
// failing step is skipped and reported, never fatal. The pipeline always
// returns a usable image, falling back to the last good intermediate.
package preprocess

import (
	"fmt"
	"image"
	"log"
)

// Step names one preprocessing stage.
type Step string

const (
	StepDenoise  Step = "denoise"
	StepDeskew   Step = "deskew"
	StepContrast Step = "contrast"
	StepSharpen  Step = "sharpen"
)

// AllSteps returns the steps in application order.
func AllSteps() []Step {
	return []Step{StepDenoise, StepDeskew, StepContrast, StepSharpen}
}

// Options toggles individual steps. The zero value disables everything.
type Options struct {
	Denoise  bool
	Deskew   bool
	Contrast bool
	Sharpen  bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{Denoise: true, Deskew: true, Contrast: true, Sharpen: true}
}

// enabled reports whether the given step is switched on.
func (o Options) enabled(s Step) bool {
	switch s {
	case StepDenoise:
		return o.Denoise
	case StepDeskew:
		return o.Deskew
	case StepContrast:
		return o.Contrast
	case StepSharpen:
		return o.Sharpen
	}
	return false
}

// StepError reports a preprocessing step that failed and was skipped.
// It is advisory: extraction proceeds with the last good image.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("preprocessing step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Preprocessor runs the configured enhancement steps.
type Preprocessor struct {
	opts   Options
	logger *log.Logger
}

// New creates a preprocessor with the given step toggles. logger may be nil.
func New(opts Options, logger *log.Logger) *Preprocessor {
	return &Preprocessor{opts: opts, logger: logger}
}

// stepFunc is one enhancement stage: pure, input image in, enhanced image out.
type stepFunc func(image.Image) (image.Image, error)

var stepFuncs = map[Step]stepFunc{
	StepDenoise:  Denoise,
	StepDeskew:   Deskew,
	StepContrast: EnhanceContrast,
	StepSharpen:  Sharpen,
}

// Run applies the enabled steps in order and returns the enhanced image
// along with any step failures. A failed step leaves the image from the
// previous step in place; Run never returns a nil image for a non-nil
// input.
func (p *Preprocessor) Run(img image.Image) (image.Image, []*StepError) {
	var failures []*StepError

	current := img
	for _, step := range AllSteps() {
		if !p.opts.enabled(step) {
			continue
		}
		enhanced, err := stepFuncs[step](current)
		if err != nil {
			failures = append(failures, &StepError{Step: step, Err: err})
			if p.logger != nil {
				p.logger.Printf("preprocessing: step %s skipped: %v", step, err)
			}
			continue
		}
		current = enhanced
	}
	return current, failures
}
