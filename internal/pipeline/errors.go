package pipeline

import (
	"fmt"

	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
)

// InputError reports input that is missing, unreadable, or in an unsupported
// format. It is fatal for the extract call that raised it and is never
// retried internally.
type InputError struct {
	// Input names the offending input: a file path, or a short description
	// for byte-buffer input.
	Input string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid option before any engine work
// begins. Like InputError it terminates the call.
type ConfigurationError struct {
	// Option names the offending option field.
	Option string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Option, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// EngineInvocationError reports a failed engine pass. It never escapes an
// extract call: the failing (page, language) pass contributes zero regions
// and a warning while the remaining passes proceed.
type EngineInvocationError struct {
	Page     int
	Language lang.Language
	Err      error
}

func (e *EngineInvocationError) Error() string {
	return fmt.Sprintf("engine pass (%s, page %d): %v", e.Language, e.Page, e.Err)
}

func (e *EngineInvocationError) Unwrap() error { return e.Err }
