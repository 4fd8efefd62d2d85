// Package colorseg finds highlighter marks on a rendered page by colour and
// reads the text under each mark.
//
// It is the fallback used when a document carries no structured highlight
// annotations, e.g. a scan of a page marked with a physical highlighter.
package colorseg

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"

	// Decoders for the raster formats a page image may arrive in.
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// Recognizer maps an encoded image to the text it shows.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
}

// Config tunes region detection.
type Config struct {
	Band Band `toml:"band"`

	// Side of the square kernel used for the closing pass.
	KernelSize int `toml:"kernel_size" validate:"min=1"`

	// Regions whose bounding box covers fewer pixels are noise.
	MinArea int `toml:"min_area" validate:"min=0"`
}

// DefaultConfig returns the tuning used for yellow highlighter pens.
func DefaultConfig() Config {
	return Config{
		Band:       YellowHighlighter,
		KernelSize: 5,
		MinArea:    500,
	}
}

// Detector segments highlighted regions and recognises their text.
type Detector struct {
	cfg    Config
	rec    Recognizer
	logger zerolog.Logger
}

// New creates a Detector. rec must not be nil.
func New(cfg Config, rec Recognizer, logger zerolog.Logger) *Detector {
	return &Detector{cfg: cfg, rec: rec, logger: logger}
}

type snippet struct {
	y    int
	text string
}

// Detect decodes imageData and returns the highlighted text snippets in
// top-to-bottom order with exact repeats removed.
func (d *Detector) Detect(imageData []byte) ([]string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}
	return d.DetectImage(img), nil
}

// DetectImage is Detect for an already decoded image.
func (d *Detector) DetectImage(img image.Image) []string {
	var found []snippet
	for _, r := range d.Regions(img) {
		text, err := d.recognize(img, r)
		if err != nil {
			d.logger.Debug().Err(err).Stringer("region", r).Msg("region recognition failed")
			continue
		}
		if text != "" {
			found = append(found, snippet{y: r.Min.Y, text: text})
		}
	}

	slices.SortStableFunc(found, func(a, b snippet) int {
		return a.y - b.y
	})

	seen := make(map[string]struct{}, len(found))
	texts := make([]string, 0, len(found))
	for _, s := range found {
		if _, ok := seen[s.text]; ok {
			continue
		}
		seen[s.text] = struct{}{}
		texts = append(texts, s.text)
	}
	return texts
}

// Regions returns the bounding boxes, in img coordinates, of the coloured
// regions that survive closing and the area filter.
func (d *Detector) Regions(img image.Image) []image.Rectangle {
	mask := Close(Mask(img, d.cfg.Band), d.cfg.KernelSize)

	var out []image.Rectangle
	for _, r := range Regions(mask) {
		if r.Dx()*r.Dy() < d.cfg.MinArea {
			continue
		}
		out = append(out, r.Add(img.Bounds().Min))
	}
	return out
}

func (d *Detector) recognize(img image.Image, r image.Rectangle) (string, error) {
	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(crop, image.Point{}, img, r, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return "", fmt.Errorf("failed to encode region: %w", err)
	}

	text, err := d.rec.RecognizeImage(buf.Bytes())
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}
