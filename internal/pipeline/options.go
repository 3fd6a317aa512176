package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/ApxllxCartxr/ROSETTA/internal/dedupe"
	"github.com/ApxllxCartxr/ROSETTA/internal/engine"
	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
	"github.com/ApxllxCartxr/ROSETTA/internal/preprocess"
)

// Options configures one Pipeline. The zero value is not useful; start from
// DefaultOptions and override.
type Options struct {
	// DefaultLanguage is the language to recognize when neither detection
	// mode is enabled. Empty defaults to English.
	DefaultLanguage lang.Language

	// ConfidenceThreshold drops regions scoring below it. Clamped to [0,1].
	ConfidenceThreshold float64

	// EnablePreprocessing runs the image enhancement sequence on every page
	// before recognition.
	EnablePreprocessing bool

	// PreprocessingSteps selects which enhancement steps run when
	// preprocessing is enabled.
	PreprocessingSteps preprocess.Options

	// Profile is the engine speed/accuracy preset. Empty defaults to
	// balanced.
	Profile engine.Profile

	// UseGPU requests GPU-backed engine instances.
	UseGPU bool

	// MultiLanguage detects every script present and runs one engine pass
	// per detected language, merging the results spatially.
	MultiLanguage bool

	// AutoDetectLanguage detects the single dominant script via a cheap
	// pre-pass and recognizes in that language. Ignored when MultiLanguage
	// is set.
	AutoDetectLanguage bool

	// IoUThreshold is the spatial-overlap ratio above which two regions from
	// different passes count as duplicates. Clamped to [0,1].
	IoUThreshold float64

	// EngineVariables carries engine-specific knobs by name; unknown names
	// are dropped.
	EngineVariables map[string]string

	// MaxPDFPages caps how many PDF pages are processed. Zero means no cap.
	MaxPDFPages int
}

// DefaultOptions returns the documented defaults: English, a 0.80 confidence
// threshold, full preprocessing, the balanced profile, and the standard
// overlap threshold.
func DefaultOptions() Options {
	return Options{
		DefaultLanguage:     lang.English,
		ConfidenceThreshold: 0.80,
		EnablePreprocessing: true,
		PreprocessingSteps:  preprocess.DefaultOptions(),
		Profile:             engine.ProfileBalanced,
		IoUThreshold:        dedupe.DefaultIoUThreshold,
	}
}

// normalized validates the options and fills defaults. Validation failures
// are ConfigurationErrors; thresholds merely out of range are clamped
// rather than rejected.
func (o Options) normalized() (Options, error) {
	out := o

	if out.DefaultLanguage == "" {
		out.DefaultLanguage = lang.English
	} else if !out.DefaultLanguage.Valid() {
		return out, &ConfigurationError{
			Option: "default_language",
			Err:    fmt.Errorf("unrecognized language tag %q", string(out.DefaultLanguage)),
		}
	}

	if math.IsNaN(out.ConfidenceThreshold) || math.IsInf(out.ConfidenceThreshold, 0) {
		return out, &ConfigurationError{
			Option: "confidence_threshold",
			Err:    errors.New("must be a finite number"),
		}
	}
	out.ConfidenceThreshold = clamp01(out.ConfidenceThreshold)

	if out.Profile == "" {
		out.Profile = engine.ProfileBalanced
	} else if !out.Profile.Valid() {
		return out, &ConfigurationError{
			Option: "performance_profile",
			Err:    fmt.Errorf("unknown profile %q", string(out.Profile)),
		}
	}

	if math.IsNaN(out.IoUThreshold) || math.IsInf(out.IoUThreshold, 0) {
		return out, &ConfigurationError{
			Option: "iou_threshold",
			Err:    errors.New("must be a finite number"),
		}
	}
	out.IoUThreshold = clamp01(out.IoUThreshold)

	if out.MaxPDFPages < 0 {
		out.MaxPDFPages = 0
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
