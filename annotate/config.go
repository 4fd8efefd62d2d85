package annotate

import (
	"github.com/abiiranathan/pdfnotes/colorseg"
	"github.com/rs/zerolog"
)

// Config holds the extraction tunables.
type Config struct {
	Highlight HighlightOptions `toml:"highlight"`

	// Upscaling applied when rasterising an ink marker for recognition.
	InkScale float64 `toml:"ink_scale" validate:"gt=0,lte=8"`

	// Upscaling applied when rasterising whole pages in the fallback pass.
	FallbackScale float64 `toml:"fallback_scale" validate:"gt=0,lte=8"`

	// Text of a fallback entry whose page recognises as nothing.
	EmptyOCRPlaceholder string `toml:"empty_ocr_placeholder" validate:"required"`

	// Number of pages processed at once. 1 walks pages sequentially.
	Concurrency int `toml:"concurrency" validate:"min=1,max=64"`

	Regions colorseg.Config `toml:"regions"`
}

// DefaultConfig returns the standard extraction settings.
func DefaultConfig() Config {
	return Config{
		Highlight:           DefaultHighlightOptions(),
		InkScale:            2,
		FallbackScale:       2,
		EmptyOCRPlaceholder: "(No readable OCR text found on this page.)",
		Concurrency:         1,
		Regions:             colorseg.DefaultConfig(),
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for skipped markers and failed pages.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}
