package pdf

/*
#cgo pkg-config: glib-2.0 cairo poppler-glib

#include <cairo/cairo.h>
#include <poppler/glib/poppler.h>

cairo_surface_t *render_area(PopplerPage *page, double scale, double x, double y, double w, double h);
double *annot_quads(PopplerAnnot *annot, guint *n);
*/
import "C"
import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"
	"unsafe"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/geom"
)

// Page is a page of a Document. It stays valid until the document is
// closed.
type Page struct {
	doc    *Document
	page   *C.PopplerPage
	number int

	words []geom.Word

	Width  float64 // points
	Height float64 // points
}

// Number returns the 1-based page number.
func (p *Page) Number() int {
	return p.number
}

// skipped are layout glyphs (arrows, bullets) that poppler reports as text.
var skipped = func() *strings.Replacer {
	var oldnew []string
	for r := rune(0x25B6); r <= 0x25FF; r++ {
		oldnew = append(oldnew, string(r), "")
	}
	oldnew = append(oldnew, "\u0080", "", "\u0089", "")
	return strings.NewReplacer(oldnew...)
}()

// rawText returns the page text exactly as poppler lays it out. The caller
// must hold the document lock.
func (p *Page) rawText() (string, error) {
	if p.page == nil {
		return "", ErrClosed
	}

	gText := C.poppler_page_get_text(p.page)
	if gText == nil {
		return "", nil
	}
	defer C.g_free(C.gpointer(gText))
	return C.GoString((*C.char)(gText)), nil
}

// Text returns the plain text of the page, one line per text line, without
// decorative glyphs.
func (p *Page) Text() (string, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	text, err := p.rawText()
	if err != nil {
		return "", err
	}
	return skipped.Replace(text), nil
}

// Words returns the positioned words of the page in reading order. The
// result is computed once and cached.
func (p *Page) Words() ([]geom.Word, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	if p.words != nil {
		return p.words, nil
	}

	text, err := p.rawText()
	if err != nil {
		return nil, err
	}

	var (
		rects *C.PopplerRectangle
		n     C.guint
	)
	if C.poppler_page_get_text_layout(p.page, &rects, &n) == 0 {
		p.words = []geom.Word{}
		return p.words, nil
	}
	defer C.g_free(C.gpointer(rects))

	boxes := make([]geom.Rect, int(n))
	for i, r := range unsafe.Slice(rects, int(n)) {
		boxes[i] = geom.NewRectFromPoints(
			geom.Point{X: float64(r.x1), Y: float64(r.y1)},
			geom.Point{X: float64(r.x2), Y: float64(r.y2)},
		)
	}

	p.words = wordsFromLayout(text, boxes)
	return p.words, nil
}

// flip converts a poppler annotation rectangle, which has its origin at the
// bottom-left corner, to top-left page coordinates.
func (p *Page) flip(x1, y1, x2, y2 float64) geom.Rect {
	return geom.NewRectFromPoints(
		geom.Point{X: x1, Y: p.Height - y1},
		geom.Point{X: x2, Y: p.Height - y2},
	)
}

// Markers returns the annotations of the page in document order.
//
// Poppler does not expose object numbers, so a marker's ID comes from
// markerIDs.
func (p *Page) Markers() ([]annotate.Marker, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	if p.page == nil {
		return nil, ErrClosed
	}

	list := C.poppler_page_get_annot_mapping(p.page)
	if list == nil {
		return nil, nil
	}
	defer C.poppler_page_free_annot_mapping(list)

	var (
		markers []annotate.Marker
		names   []string
	)
	for l := list; l != nil; l = l.next {
		mapping := (*C.PopplerAnnotMapping)(unsafe.Pointer(l.data))
		annot := mapping.annot
		area := mapping.area

		m := annotate.Marker{
			Type:     markerType(C.poppler_annot_get_annot_type(annot)),
			Contents: takeString(C.poppler_annot_get_contents(annot)),
			Rect:     p.flip(float64(area.x1), float64(area.y1), float64(area.x2), float64(area.y2)),
		}
		if m.Type == annotate.MarkerHighlight {
			m.Quads = p.quads(annot)
		}

		markers = append(markers, m)
		names = append(names, takeString(C.poppler_annot_get_name(annot)))
	}

	for i, id := range markerIDs(names) {
		markers[i].ID = id
	}
	return markers, nil
}

func (p *Page) quads(annot *C.PopplerAnnot) []geom.Quad {
	var n C.guint
	flat := C.annot_quads(annot, &n)
	if flat == nil {
		return nil
	}
	defer C.g_free(C.gpointer(flat))

	values := unsafe.Slice((*float64)(unsafe.Pointer(flat)), int(n)*8)
	quads := make([]geom.Quad, int(n))
	for i := range quads {
		v := values[i*8 : i*8+8]
		for j := range 4 {
			quads[i][j] = geom.Point{X: v[j*2], Y: p.Height - v[j*2+1]}
		}
	}
	return quads
}

func markerType(t C.PopplerAnnotType) annotate.MarkerType {
	switch t {
	case C.POPPLER_ANNOT_TEXT:
		return annotate.MarkerStickyNote
	case C.POPPLER_ANNOT_FREE_TEXT:
		return annotate.MarkerFreeText
	case C.POPPLER_ANNOT_HIGHLIGHT:
		return annotate.MarkerHighlight
	case C.POPPLER_ANNOT_INK:
		return annotate.MarkerInk
	default:
		return annotate.MarkerOther
	}
}

// takeString converts and frees a glib string. NULL becomes "".
func takeString(s *C.gchar) string {
	if s == nil {
		return ""
	}
	defer C.g_free(C.gpointer(s))
	return C.GoString((*C.char)(s))
}

// Rasterize renders the page, or only clip when it is not nil, with each
// point mapped to scale pixels, and returns it as a PNG.
func (p *Page) Rasterize(scale float64, clip *geom.Rect) ([]byte, error) {
	img, err := p.Image(scale, clip)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", p.number, err)
	}
	return buf.Bytes(), nil
}

// Image renders like Rasterize without encoding.
func (p *Page) Image(scale float64, clip *geom.Rect) (*image.NRGBA, error) {
	if scale <= 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}

	area := geom.Rect{Width: p.Width, Height: p.Height}
	if clip != nil {
		area = *clip
	}

	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	if p.page == nil {
		return nil, ErrClosed
	}

	surface := C.render_area(p.page, C.double(scale),
		C.double(area.X), C.double(area.Y), C.double(area.Width), C.double(area.Height))
	if surface == nil {
		return nil, fmt.Errorf("failed to render page %d at %vx", p.number, scale)
	}
	defer C.cairo_surface_destroy(surface)

	width := int(C.cairo_image_surface_get_width(surface))
	height := int(C.cairo_image_surface_get_height(surface))
	stride := int(C.cairo_image_surface_get_stride(surface))
	data := unsafe.Slice((*byte)(unsafe.Pointer(C.cairo_image_surface_get_data(surface))), stride*height)

	return argbToNRGBA(data, width, height, stride), nil
}

// argbToNRGBA converts cairo's premultiplied, native-endian ARGB32 pixels.
func argbToNRGBA(data []byte, width, height, stride int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		row := data[y*stride:]
		out := img.Pix[y*img.Stride:]
		for x := range width {
			px := binary.NativeEndian.Uint32(row[x*4:])
			a := px >> 24
			r, g, b := px>>16&0xff, px>>8&0xff, px&0xff
			if a != 0 && a != 0xff {
				r = r * 0xff / a
				g = g * 0xff / a
				b = b * 0xff / a
			}
			out[x*4+0] = uint8(r)
			out[x*4+1] = uint8(g)
			out[x*4+2] = uint8(b)
			out[x*4+3] = uint8(a)
		}
	}
	return img
}
