package annotate

import (
	"errors"
	"sync"

	"github.com/abiiranathan/pdfnotes/geom"
)

type fakeDoc struct {
	pages []*fakePage
	err   error
}

func (d *fakeDoc) Pages() ([]Page, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = p
	}
	return out, nil
}

type rasterCall struct {
	scale float64
	clip  *geom.Rect
}

type fakePage struct {
	num        int
	words      []geom.Word
	text       string
	markers    []Marker
	markersErr error
	raster     []byte
	rasterErr  error

	mu      sync.Mutex
	rasters []rasterCall
}

func (p *fakePage) Number() int                 { return p.num }
func (p *fakePage) Words() ([]geom.Word, error) { return p.words, nil }
func (p *fakePage) Text() (string, error)       { return p.text, nil }

func (p *fakePage) Markers() ([]Marker, error) {
	return p.markers, p.markersErr
}

func (p *fakePage) Rasterize(scale float64, clip *geom.Rect) ([]byte, error) {
	p.mu.Lock()
	p.rasters = append(p.rasters, rasterCall{scale: scale, clip: clip})
	p.mu.Unlock()

	if p.rasterErr != nil {
		return nil, p.rasterErr
	}
	return p.raster, nil
}

// textRecognizer answers with the text registered for the exact image bytes.
type textRecognizer struct {
	texts map[string]string
	errs  map[string]error
}

func (r *textRecognizer) RecognizeImage(data []byte) (string, error) {
	if err, ok := r.errs[string(data)]; ok {
		return "", err
	}
	text, ok := r.texts[string(data)]
	if !ok {
		return "", errors.New("unknown image")
	}
	return text, nil
}

// word places text on a 10pt high line starting at x.
func word(text string, x, y, w float64) geom.Word {
	return geom.Word{Rect: geom.Rect{X: x, Y: y, Width: w, Height: 10}, Text: text}
}

func quad(r geom.Rect) geom.Quad {
	return geom.Quad{
		{X: r.Left(), Y: r.Top()},
		{X: r.Right(), Y: r.Top()},
		{X: r.Left(), Y: r.Bottom()},
		{X: r.Right(), Y: r.Bottom()},
	}
}
