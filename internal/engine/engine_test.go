package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
)

// countingEngine records invocations and returns a fixed payload.
type countingEngine struct {
	cfg    Config
	closed bool
}

func (e *countingEngine) Run(ctx context.Context, imagePath string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (e *countingEngine) Close() error {
	e.closed = true
	return nil
}

func countingFactory(counter *int32) Factory {
	return func(cfg Config) (Engine, error) {
		atomic.AddInt32(counter, 1)
		return &countingEngine{cfg: cfg}, nil
	}
}

func TestCache_SameKeyConstructsOnce(t *testing.T) {
	var constructed int32
	cache := NewCache(countingFactory(&constructed))

	cfg := Config{Language: lang.English, Profile: ProfileBalanced}
	first, err := cache.Get(cfg)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := cache.Get(cfg)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if constructed != 1 {
		t.Errorf("constructed %d engines, want 1", constructed)
	}
	if first != second {
		t.Error("sequential gets with the same key should return the same instance")
	}
}

func TestCache_DistinctKeysConstructSeparately(t *testing.T) {
	var constructed int32
	cache := NewCache(countingFactory(&constructed))

	if _, err := cache.Get(Config{Language: lang.English}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := cache.Get(Config{Language: lang.Arabic}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := cache.Get(Config{Language: lang.English, UseGPU: true}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if constructed != 3 {
		t.Errorf("constructed %d engines, want 3", constructed)
	}
	if cache.Len() != 3 {
		t.Errorf("cache holds %d engines, want 3", cache.Len())
	}
}

func TestCache_ClearDropsAndRecreates(t *testing.T) {
	var constructed int32
	cache := NewCache(countingFactory(&constructed))

	cfg := Config{Language: lang.Tamil}
	e, err := cache.Get(cfg)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("cache holds %d engines after Clear, want 0", cache.Len())
	}
	if !e.(*countingEngine).closed {
		t.Error("Clear should close dropped engines")
	}

	if _, err := cache.Get(cfg); err != nil {
		t.Fatalf("Get after Clear failed: %v", err)
	}
	if constructed != 2 {
		t.Errorf("constructed %d engines, want 2 (one before and one after Clear)", constructed)
	}
}

func TestCache_ConcurrentFirstUseConstructsOnce(t *testing.T) {
	var constructed int32
	cache := NewCache(countingFactory(&constructed))
	cfg := Config{Language: lang.Hindi, Profile: ProfileAccurate}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(cfg); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if constructed != 1 {
		t.Errorf("constructed %d engines under concurrent first use, want 1", constructed)
	}
}

func TestConfigKey_Deterministic(t *testing.T) {
	a := Config{
		Language:  lang.English,
		Profile:   ProfileFast,
		Variables: map[string]string{"tessedit_pageseg_mode": "6", "preserve_interword_spaces": "1"},
	}
	b := Config{
		Language:  lang.English,
		Profile:   ProfileFast,
		Variables: map[string]string{"preserve_interword_spaces": "1", "tessedit_pageseg_mode": "6"},
	}
	if a.Key() != b.Key() {
		t.Errorf("variable insertion order must not affect the key: %q vs %q", a.Key(), b.Key())
	}
}

func TestConfigKey_DistinguishesFields(t *testing.T) {
	base := Config{Language: lang.English, Profile: ProfileBalanced}
	variants := []Config{
		{Language: lang.Arabic, Profile: ProfileBalanced},
		{Language: lang.English, Profile: ProfileFast},
		{Language: lang.English, Profile: ProfileBalanced, UseGPU: true},
		{Language: lang.English, Profile: ProfileBalanced, Variables: map[string]string{"tessedit_pageseg_mode": "3"}},
	}
	for _, v := range variants {
		if v.Key() == base.Key() {
			t.Errorf("config %+v should not share a key with the base config", v)
		}
	}
}

func TestConfigNormalize_DropsUnknownVariables(t *testing.T) {
	cfg := Config{
		Language: lang.English,
		Variables: map[string]string{
			"tessedit_pageseg_mode": "6",
			"rm_rf_slash":           "oops",
		},
	}
	norm := cfg.Normalize()
	if _, ok := norm.Variables["rm_rf_slash"]; ok {
		t.Error("unknown variables must be dropped by normalization")
	}
	if norm.Variables["tessedit_pageseg_mode"] != "6" {
		t.Error("allow-listed variables must survive normalization")
	}
	if norm.Profile != ProfileBalanced {
		t.Errorf("empty profile should default to balanced, got %q", norm.Profile)
	}
}

func TestProfileTuning(t *testing.T) {
	tests := []struct {
		profile Profile
		want    Tuning
	}{
		{ProfileFast, Tuning{BatchSize: 10, DetectThresh: 0.5, BoxThresh: 0.7, MaxSideLen: 720}},
		{ProfileBalanced, Tuning{BatchSize: 6, DetectThresh: 0.3, BoxThresh: 0.6, MaxSideLen: 960}},
		{ProfileAccurate, Tuning{BatchSize: 4, DetectThresh: 0.2, BoxThresh: 0.5, MaxSideLen: 1280, UseDilation: true}},
		{Profile("bogus"), Tuning{BatchSize: 6, DetectThresh: 0.3, BoxThresh: 0.6, MaxSideLen: 960}},
	}
	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			if got := tt.profile.Tuning(); got != tt.want {
				t.Errorf("Tuning() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
