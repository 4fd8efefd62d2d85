// Package ocr recognises text in raster images with the Tesseract engine.
//
// Tesseract support is compiled in with the "ocr" build tag:
//
//	go build -tags ocr
//
// which requires the Tesseract and Leptonica development packages, e.g.
//
//	apt-get install libtesseract-dev libleptonica-dev tesseract-ocr-eng
//
// Without the tag every constructor returns ErrOCRNotEnabled.
package ocr

import "errors"

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Options configures the engine.
type Options struct {
	// Languages in Tesseract notation, "+" separated (e.g. "eng+fra").
	Language string `toml:"language" validate:"required"`

	// Page segmentation mode, 0 to 13. See PSM_* for the meaning.
	PageSegMode PageSegMode `toml:"page_seg_mode" validate:"min=0,max=13"`
}

// DefaultOptions returns English with fully automatic segmentation.
func DefaultOptions() Options {
	return Options{Language: "eng", PageSegMode: PSM_AUTO}
}

// PageSegMode controls how Tesseract analyses the page layout.
type PageSegMode int

const (
	PSM_OSD_ONLY               PageSegMode = 0  // Orientation and script detection only
	PSM_AUTO_OSD               PageSegMode = 1  // Automatic with OSD
	PSM_AUTO_ONLY              PageSegMode = 2  // Automatic, no OSD or OCR
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SINGLE_LINE            PageSegMode = 7  // Single text line
	PSM_SINGLE_WORD            PageSegMode = 8  // Single word
	PSM_CIRCLE_WORD            PageSegMode = 9  // Single word in a circle
	PSM_SINGLE_CHAR            PageSegMode = 10 // Single character
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
	PSM_SPARSE_TEXT_OSD        PageSegMode = 12 // Sparse text with OSD
	PSM_RAW_LINE               PageSegMode = 13 // Treat image as single text line
)
