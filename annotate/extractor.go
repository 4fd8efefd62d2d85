// Package annotate turns the annotation markers of a document into study
// annotations: the text each marker refers to, its class, its priority and
// the text of the page it sits on.
//
// Extraction runs in two passes. Collect resolves the structured markers of
// every page. When that yields nothing anywhere in the document, RunFallback
// recognises the text of each rendered page instead. Extract composes both.
package annotate

import (
	"github.com/abiiranathan/pdfnotes/colorseg"
	"github.com/abiiranathan/pdfnotes/geom"
	"github.com/rs/zerolog"
)

// Document is a paged, annotated document.
type Document interface {
	Pages() ([]Page, error)
}

// Page is one page of a Document. Coordinates use a top-left origin in the
// same unit for words, markers and clip rectangles.
type Page interface {
	Number() int // 1-based
	Words() ([]geom.Word, error)
	Text() (string, error)
	Markers() ([]Marker, error)

	// Rasterize renders the page, or only clip when it is not nil, at
	// scale and returns a PNG.
	Rasterize(scale float64, clip *geom.Rect) ([]byte, error)
}

// Recognizer maps an encoded image to the text it shows. It may return an
// empty string.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
}

// Extractor resolves annotations. It is safe for concurrent use if its
// Recognizer is.
type Extractor struct {
	cfg      Config
	rec      Recognizer
	detector *colorseg.Detector
	logger   zerolog.Logger
}

// New creates an Extractor. rec may be nil, in which case ink markers are
// skipped and the fallback pass is unavailable.
func New(cfg Config, rec Recognizer, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:    cfg,
		rec:    rec,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.Concurrency < 1 {
		e.cfg.Concurrency = 1
	}
	if rec != nil {
		e.detector = colorseg.New(cfg.Regions, rec, e.logger)
	}
	return e
}

// Config returns the settings the Extractor was built with.
func (e *Extractor) Config() Config {
	return e.cfg
}
