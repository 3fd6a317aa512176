package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ApxllxCartxr/ROSETTA/internal/engine"
	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
	"github.com/ApxllxCartxr/ROSETTA/internal/pipeline"
)

// fileConfig is the optional YAML configuration file. Only the ocr section
// is read; pointer fields distinguish "absent" from an explicit zero value.
type fileConfig struct {
	OCR struct {
		Language            string            `yaml:"language"`
		ConfidenceThreshold *float64          `yaml:"confidence_threshold"`
		UseGPU              *bool             `yaml:"use_gpu"`
		AutoDetectLanguage  *bool             `yaml:"auto_detect_language"`
		MultiLanguage       *bool             `yaml:"multi_language"`
		Performance         string            `yaml:"performance"`
		MaxPDFPages         *int              `yaml:"max_pdf_pages"`
		EngineVariables     map[string]string `yaml:"engine_variables"`

		Preprocessing struct {
			Enabled  *bool `yaml:"enabled"`
			Denoise  *bool `yaml:"denoise"`
			Deskew   *bool `yaml:"deskew"`
			Contrast *bool `yaml:"contrast"`
			Sharpen  *bool `yaml:"sharpen"`
		} `yaml:"preprocessing"`
	} `yaml:"ocr"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// apply overlays the file configuration onto opts. Absent fields leave the
// existing values untouched.
func (c *fileConfig) apply(opts *pipeline.Options) error {
	ocr := c.OCR

	if ocr.Language != "" {
		l, err := lang.Parse(ocr.Language)
		if err != nil {
			return fmt.Errorf("config ocr.language: %w", err)
		}
		opts.DefaultLanguage = l
	}
	if ocr.ConfidenceThreshold != nil {
		opts.ConfidenceThreshold = *ocr.ConfidenceThreshold
	}
	if ocr.UseGPU != nil {
		opts.UseGPU = *ocr.UseGPU
	}
	if ocr.AutoDetectLanguage != nil {
		opts.AutoDetectLanguage = *ocr.AutoDetectLanguage
	}
	if ocr.MultiLanguage != nil {
		opts.MultiLanguage = *ocr.MultiLanguage
	}
	if ocr.Performance != "" {
		opts.Profile = engine.Profile(ocr.Performance)
	}
	if ocr.MaxPDFPages != nil {
		opts.MaxPDFPages = *ocr.MaxPDFPages
	}
	if len(ocr.EngineVariables) > 0 {
		allowed := engine.AllowedVariables()
		known := make(map[string]bool, len(allowed))
		for _, name := range allowed {
			known[name] = true
		}
		for name := range ocr.EngineVariables {
			if !known[name] {
				return fmt.Errorf("config ocr.engine_variables: unknown variable %q (accepted: %s)",
					name, strings.Join(allowed, ", "))
			}
		}
		opts.EngineVariables = ocr.EngineVariables
	}

	pp := ocr.Preprocessing
	if pp.Enabled != nil {
		opts.EnablePreprocessing = *pp.Enabled
	}
	if pp.Denoise != nil {
		opts.PreprocessingSteps.Denoise = *pp.Denoise
	}
	if pp.Deskew != nil {
		opts.PreprocessingSteps.Deskew = *pp.Deskew
	}
	if pp.Contrast != nil {
		opts.PreprocessingSteps.Contrast = *pp.Contrast
	}
	if pp.Sharpen != nil {
		opts.PreprocessingSteps.Sharpen = *pp.Sharpen
	}
	return nil
}
