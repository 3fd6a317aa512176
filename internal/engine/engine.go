// Package engine abstracts the OCR engine boundary.
//
// An Engine wraps one loaded OCR engine instance for one configuration and
// exposes a uniform invocation returning the engine's raw, version-dependent
// result payload as JSON. The Cache shares engine instances process-wide,
// keyed by their full configuration, because loading an engine (models,
// native contexts) is expensive relative to a single recognition.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
)

// Profile is a named speed/accuracy trade-off preset.
type Profile string

const (
	ProfileFast     Profile = "fast"
	ProfileBalanced Profile = "balanced"
	ProfileAccurate Profile = "accurate"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	switch p {
	case ProfileFast, ProfileBalanced, ProfileAccurate:
		return true
	}
	return false
}

// Tuning holds the engine tuning parameters a profile maps to.
type Tuning struct {
	// BatchSize is the recognition batch size.
	BatchSize int
	// DetectThresh is the text-detection sensitivity threshold.
	DetectThresh float64
	// BoxThresh is the detection box acceptance threshold.
	BoxThresh float64
	// MaxSideLen caps the longer image dimension fed to the engine.
	MaxSideLen int
	// UseDilation enables morphological dilation for small text.
	UseDilation bool
}

// Tuning returns the preset parameters for the profile. Unknown profiles get
// the balanced preset.
func (p Profile) Tuning() Tuning {
	switch p {
	case ProfileFast:
		return Tuning{BatchSize: 10, DetectThresh: 0.5, BoxThresh: 0.7, MaxSideLen: 720}
	case ProfileAccurate:
		return Tuning{BatchSize: 4, DetectThresh: 0.2, BoxThresh: 0.5, MaxSideLen: 1280, UseDilation: true}
	default:
		return Tuning{BatchSize: 6, DetectThresh: 0.3, BoxThresh: 0.6, MaxSideLen: 960}
	}
}

// allowedVariables is the closed set of engine-specific knobs a Config may
// carry. Anything else is silently dropped during normalization instead of
// being passed through to whatever engine implementation happens to be
// installed.
var allowedVariables = map[string]bool{
	"tessedit_pageseg_mode":          true,
	"tessedit_char_whitelist":        true,
	"tessedit_char_blacklist":        true,
	"preserve_interword_spaces":      true,
	"user_defined_dpi":               true,
	"textord_heavy_nr":               true,
	"classify_bln_numeric_mode":      true,
	"tessedit_do_invert":             true,
	"load_system_dawg":               true,
	"load_freq_dawg":                 true,
	"thresholding_method":            true,
	"textord_min_linesize":           true,
	"edges_max_children_per_outline": true,
}

// AllowedVariables returns the accepted engine variable names, sorted.
func AllowedVariables() []string {
	names := make([]string, 0, len(allowedVariables))
	for name := range allowedVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config fully describes one engine instance. Two invocations with equal
// Configs may share an instance; any difference requires a separate one.
type Config struct {
	Language lang.Language
	Profile  Profile
	UseGPU   bool

	// Variables carries engine-specific knobs by name. Only names in the
	// allow-list survive normalization.
	Variables map[string]string
}

// Normalize returns a copy of the config with the profile defaulted to
// balanced and unknown variables dropped.
func (c Config) Normalize() Config {
	out := c
	if !out.Profile.Valid() {
		out.Profile = ProfileBalanced
	}
	if len(c.Variables) > 0 {
		out.Variables = make(map[string]string, len(c.Variables))
		for k, v := range c.Variables {
			if allowedVariables[k] {
				out.Variables[k] = v
			}
		}
	}
	return out
}

// Key is the canonical cache key derived from a Config.
type Key string

// Key canonicalizes the config into a deterministic cache key. Variable
// order does not matter: the map is serialized sorted by name.
func (c Config) Key() Key {
	c = c.Normalize()

	var sb strings.Builder
	sb.WriteString(string(c.Language))
	sb.WriteByte('|')
	sb.WriteString(string(c.Profile))
	sb.WriteByte('|')
	if c.UseGPU {
		sb.WriteString("gpu")
	} else {
		sb.WriteString("cpu")
	}

	if len(c.Variables) > 0 {
		names := make([]string, 0, len(c.Variables))
		for name := range c.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteByte('|')
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.WriteString(c.Variables[name])
		}
	}
	return Key(sb.String())
}

// Engine is one loaded OCR engine instance.
//
// Run recognizes the image at path and returns the engine's raw result
// payload. The payload shape is engine- and version-dependent; callers
// normalize it with the parse package.
type Engine interface {
	Run(ctx context.Context, imagePath string) (json.RawMessage, error)
	Close() error
}

// Factory constructs an engine instance for a normalized config.
type Factory func(cfg Config) (Engine, error)

// Cache shares engine instances across pipeline invocations, keyed by
// Config.Key. Instances are created lazily on first use and live until
// Clear.
//
// The mutex is held across the whole check-then-create sequence, so at most
// one instance is ever constructed per distinct key even under concurrent
// first use. Construction is therefore serialized; that is the deliberate
// trade-off, since engine construction is rare and instance reuse is the
// common path.
type Cache struct {
	mu      sync.Mutex
	factory Factory
	engines map[Key]Engine
}

// NewCache creates an empty engine cache backed by factory.
func NewCache(factory Factory) *Cache {
	return &Cache{
		factory: factory,
		engines: make(map[Key]Engine),
	}
}

// Get returns the cached engine for cfg, constructing and caching it first
// if absent.
func (c *Cache) Get(cfg Config) (Engine, error) {
	cfg = cfg.Normalize()
	key := cfg.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.engines[key]; ok {
		return e, nil
	}
	e, err := c.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct engine for %q: %w", key, err)
	}
	c.engines[key] = e
	return e, nil
}

// Len returns the number of cached engine instances.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.engines)
}

// Clear closes and drops every cached engine. Subsequent Get calls
// re-create instances lazily. Intended for explicit memory reclamation
// between large batch jobs.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.engines {
		if err := e.Close(); err != nil {
			// Nothing actionable for the caller; the instance is dropped
			// either way.
			continue
		}
		delete(c.engines, key)
	}
	c.engines = make(map[Key]Engine)
}
