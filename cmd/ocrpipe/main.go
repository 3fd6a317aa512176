package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ApxllxCartxr/ROSETTA/internal/engine"
	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
	"github.com/ApxllxCartxr/ROSETTA/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("ocrpipe %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	fs := flag.NewFlagSet("ocrpipe", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "ocrpipe - extract text from document images and PDFs")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: ocrpipe [options] <image-or-pdf>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Environment variables:")
		fmt.Fprintln(os.Stderr, "  OCRPIPE_LOG_LEVEL=debug    Enable debug logging")
	}

	langFlag := fs.String("lang", "en", "recognition language (en, ar, ta, hi)")
	threshold := fs.Float64("threshold", 0.80, "confidence threshold for filtering")
	gpu := fs.Bool("gpu", false, "use GPU acceleration if available")
	autoDetect := fs.Bool("auto-detect", false, "auto-detect language from image content")
	multiLang := fs.Bool("multi-lang", false, "extract text in ALL languages present (comprehensive but slower)")
	performance := fs.String("performance", "balanced", "performance mode: fast, balanced, accurate")
	preprocessFlag := fs.Bool("preprocess", false, "enable preprocessing (denoise, deskew, contrast, sharpen)")
	noDenoise := fs.Bool("no-denoise", false, "disable denoising during preprocessing")
	noDeskew := fs.Bool("no-deskew", false, "disable deskew during preprocessing")
	noContrast := fs.Bool("no-contrast", false, "disable contrast enhancement during preprocessing")
	noSharpen := fs.Bool("no-sharpen", false, "disable sharpening during preprocessing")
	maxPages := fs.Int("max-pages", 0, "cap on processed PDF pages (0 = no cap)")
	output := fs.String("output", "", "save results to JSON file (optional)")
	configPath := fs.String("config", "", "path to YAML config file (optional)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	inputPath := fs.Arg(0)

	// Results go to stdout; diagnostics go to stderr.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	var logger *log.Logger
	if os.Getenv("OCRPIPE_LOG_LEVEL") == "debug" {
		logger = log.Default()
		logger.Printf("ocrpipe v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	var cfg *fileConfig
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}

	flagSet := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })

	opts, err := mergeOptions(cfg, flagSet, cliFlags{
		lang:        *langFlag,
		threshold:   *threshold,
		gpu:         *gpu,
		autoDetect:  *autoDetect,
		multiLang:   *multiLang,
		performance: *performance,
		preprocess:  *preprocessFlag,
		noDenoise:   *noDenoise,
		noDeskew:    *noDeskew,
		noContrast:  *noContrast,
		noSharpen:   *noSharpen,
		maxPages:    *maxPages,
	})
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	p, err := pipeline.New(opts, pipeline.WithLogger(logger))
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	fmt.Printf("Processing: %s\n", inputPath)
	fmt.Printf("Language: %s\n", opts.DefaultLanguage)
	fmt.Printf("Confidence threshold: %.2f\n\n", opts.ConfidenceThreshold)

	result, err := p.ExtractFile(context.Background(), inputPath)
	if err != nil {
		log.Fatalf("Extraction error: %v", err)
	}

	printResult(result)

	if *output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Encode error: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		fmt.Printf("Results saved to: %s\n", *output)
	}
}

// cliFlags carries the parsed command-line flag values.
type cliFlags struct {
	lang        string
	threshold   float64
	gpu         bool
	autoDetect  bool
	multiLang   bool
	performance string
	preprocess  bool
	noDenoise   bool
	noDeskew    bool
	noContrast  bool
	noSharpen   bool
	maxPages    int
}

// mergeOptions resolves the effective pipeline options: library defaults,
// overlaid by the config file when present, overlaid by explicitly set
// flags. set holds the names of the flags the user actually passed.
func mergeOptions(cfg *fileConfig, set map[string]bool, fl cliFlags) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	// From the command line preprocessing is opt-in, matching the
	// --preprocess default; the library default keeps it on for
	// programmatic callers.
	opts.EnablePreprocessing = false

	if cfg != nil {
		if err := cfg.apply(&opts); err != nil {
			return opts, err
		}
	}

	if set["lang"] || opts.DefaultLanguage == "" {
		l, err := lang.Parse(fl.lang)
		if err != nil {
			return opts, fmt.Errorf("invalid --lang: %w", err)
		}
		opts.DefaultLanguage = l
	}
	if set["threshold"] {
		opts.ConfidenceThreshold = fl.threshold
	}
	if set["gpu"] {
		opts.UseGPU = fl.gpu
	}
	if set["auto-detect"] {
		opts.AutoDetectLanguage = fl.autoDetect
	}
	if set["multi-lang"] {
		opts.MultiLanguage = fl.multiLang
	}
	if set["performance"] {
		opts.Profile = engine.Profile(fl.performance)
	}
	if set["preprocess"] {
		opts.EnablePreprocessing = fl.preprocess
	}
	if set["max-pages"] {
		opts.MaxPDFPages = fl.maxPages
	}
	opts.PreprocessingSteps.Denoise = opts.PreprocessingSteps.Denoise && !fl.noDenoise
	opts.PreprocessingSteps.Deskew = opts.PreprocessingSteps.Deskew && !fl.noDeskew
	opts.PreprocessingSteps.Contrast = opts.PreprocessingSteps.Contrast && !fl.noContrast
	opts.PreprocessingSteps.Sharpen = opts.PreprocessingSteps.Sharpen && !fl.noSharpen
	return opts, nil
}

func printResult(result *pipeline.Result) {
	rule := strings.Repeat("=", 60)

	fmt.Println(rule)
	fmt.Printf("Document ID: %s\n", result.DocumentID)
	fmt.Printf("Overall Confidence: %.2f%%\n", result.OverallConfidence*100)
	fmt.Printf("Language Detected: %s\n", result.LanguageDetected)
	fmt.Printf("Processing Time: %dms\n", result.Metadata.ProcessingTimeMS)
	fmt.Printf("Text Regions Found: %d\n", result.Metadata.TotalTextRegions)
	fmt.Printf("Low Confidence Filtered: %d\n", result.Metadata.FilteredLowConfidenceCount)
	fmt.Printf("Missing Bounding Boxes: %d\n", result.Metadata.MissingBBoxCount)
	fmt.Println(rule)

	if len(result.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range result.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}

	fmt.Println("\nExtracted Text:")
	for i, region := range result.ExtractedText {
		fmt.Printf("\n%d. %s\n", i+1, region.Text)
		fmt.Printf("   Confidence: %.2f%%\n", region.Confidence*100)
		if region.Box != nil {
			fmt.Printf("   BBox: [%d, %d, %d, %d]\n", region.Box.X, region.Box.Y, region.Box.Width, region.Box.Height)
		} else {
			fmt.Printf("   BBox: N/A\n")
		}
		fmt.Printf("   Language: %s | Page: %d\n", region.Language, region.PageNumber)
	}
}
