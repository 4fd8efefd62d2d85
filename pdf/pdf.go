// Package pdf reads annotated PDF documents with poppler-glib and renders
// their pages with cairo.
//
// All geometry is reported in PDF points with the origin at the top-left
// corner of the page.
package pdf

/*
#cgo pkg-config: glib-2.0 gio-2.0 cairo poppler-glib
#cgo LDFLAGS: -pthread -lm

#include <cairo/cairo.h>
#include <locale.h>
#include <math.h>
#include <poppler/glib/poppler.h>
#include <pthread.h>
#include <stdlib.h>

static pthread_mutex_t cairo_mutex = PTHREAD_MUTEX_INITIALIZER;

static char *take_error(GError *error) {
	char *msg = g_strdup(error->message);
	g_clear_error(&error);
	return msg;
}

PopplerDocument *open_document(const char *filename, int *num_pages, char **errmsg) {
	GFile *file = g_file_new_for_path(filename);
	if (file == NULL) {
		*errmsg = g_strdup("invalid path");
		return NULL;
	}

	GError *error = NULL;
	GBytes *bytes = g_file_load_bytes(file, NULL, NULL, &error);
	g_object_unref(file);
	if (error != NULL) {
		*errmsg = take_error(error);
		return NULL;
	}

	PopplerDocument *doc = poppler_document_new_from_bytes(bytes, NULL, &error);
	g_bytes_unref(bytes);
	if (error != NULL) {
		*errmsg = take_error(error);
		return NULL;
	}

	*num_pages = poppler_document_get_n_pages(doc);
	return doc;
}

PopplerDocument *open_document_bytes(const char *data, size_t len, int *num_pages, char **errmsg) {
	GError *error = NULL;
	GBytes *bytes = g_bytes_new(data, len);

	PopplerDocument *doc = poppler_document_new_from_bytes(bytes, NULL, &error);
	g_bytes_unref(bytes);
	if (error != NULL) {
		*errmsg = take_error(error);
		return NULL;
	}

	*num_pages = poppler_document_get_n_pages(doc);
	return doc;
}

// Renders the (x, y, w, h) area of page, in points, onto a white ARGB32
// surface scaled by scale. Returns NULL if the surface cannot be created.
cairo_surface_t *render_area(PopplerPage *page, double scale, double x, double y, double w, double h) {
	int pixel_width = (int)ceil(w * scale);
	int pixel_height = (int)ceil(h * scale);
	if (pixel_width <= 0 || pixel_height <= 0) {
		return NULL;
	}

	pthread_mutex_lock(&cairo_mutex);

	cairo_surface_t *surface = cairo_image_surface_create(CAIRO_FORMAT_ARGB32, pixel_width, pixel_height);
	if (cairo_surface_status(surface) != CAIRO_STATUS_SUCCESS) {
		cairo_surface_destroy(surface);
		pthread_mutex_unlock(&cairo_mutex);
		return NULL;
	}

	cairo_t *cr = cairo_create(surface);
	cairo_set_source_rgb(cr, 1.0, 1.0, 1.0);
	cairo_paint(cr);

	cairo_scale(cr, scale, scale);
	cairo_translate(cr, -x, -y);
	poppler_page_render(page, cr);

	cairo_destroy(cr);
	cairo_surface_flush(surface);

	pthread_mutex_unlock(&cairo_mutex);
	return surface;
}

// Copies the quadrilaterals of a text markup annotation into a flat array
// of 8 doubles per quadrilateral (p1..p4, x then y). Free with g_free.
double *annot_quads(PopplerAnnot *annot, guint *n) {
	*n = 0;
	if (!POPPLER_IS_ANNOT_TEXT_MARKUP(annot)) {
		return NULL;
	}

	GArray *quads = poppler_annot_text_markup_get_quadrilaterals(POPPLER_ANNOT_TEXT_MARKUP(annot));
	if (quads == NULL || quads->len == 0) {
		if (quads != NULL) {
			g_array_free(quads, TRUE);
		}
		return NULL;
	}

	double *out = g_new(double, quads->len * 8);
	for (guint i = 0; i < quads->len; i++) {
		PopplerQuadrilateral *q = &g_array_index(quads, PopplerQuadrilateral, i);
		out[i * 8 + 0] = q->p1.x;
		out[i * 8 + 1] = q->p1.y;
		out[i * 8 + 2] = q->p2.x;
		out[i * 8 + 3] = q->p2.y;
		out[i * 8 + 4] = q->p3.x;
		out[i * 8 + 5] = q->p3.y;
		out[i * 8 + 6] = q->p4.x;
		out[i * 8 + 7] = q->p4.y;
	}
	*n = quads->len;
	g_array_free(quads, TRUE);
	return out;
}
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/abiiranathan/pdfnotes/annotate"
)

// ErrClosed is returned by a Document or Page used after Close.
var ErrClosed = errors.New("document is closed")

// SetLocale sets the C locale from the environment so that poppler decodes
// text as UTF-8.
func SetLocale() {
	empty := C.CString("")
	defer C.free(unsafe.Pointer(empty))
	C.setlocale(C.LC_ALL, empty)
}

// Document is an open PDF. Poppler calls on a document and its pages are
// serialised, so pages may be used from several goroutines.
type Document struct {
	mu       sync.Mutex
	doc      *C.PopplerDocument
	pages    []*Page
	Path     string
	NumPages int
}

func fromC(doc *C.PopplerDocument, numPages C.int, errmsg *C.char, source string) (*Document, error) {
	if doc == nil {
		msg := "unknown error"
		if errmsg != nil {
			msg = C.GoString(errmsg)
			C.g_free(C.gpointer(errmsg))
		}
		return nil, fmt.Errorf("failed to open %s: %s", source, msg)
	}
	return &Document{doc: doc, NumPages: int(numPages)}, nil
}

// Open reads the PDF at path.
func Open(path string) (*Document, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var (
		numPages C.int
		errmsg   *C.char
	)
	doc, err := fromC(C.open_document(cPath, &numPages, &errmsg), numPages, errmsg, path)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// OpenBytes reads a PDF held in memory. data is copied.
func OpenBytes(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("failed to open document: no data")
	}

	var (
		numPages C.int
		errmsg   *C.char
	)
	cdoc := C.open_document_bytes((*C.char)(unsafe.Pointer(&data[0])), C.size_t(len(data)), &numPages, &errmsg)
	return fromC(cdoc, numPages, errmsg, "document")
}

// Close releases the document and all of its pages.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pages {
		if p.page != nil {
			C.g_object_unref(C.gpointer(p.page))
			p.page = nil
		}
	}
	d.pages = nil

	if d.doc != nil {
		C.g_object_unref(C.gpointer(d.doc))
		d.doc = nil
	}
}

// Page returns page number n (1-based).
func (d *Document) Page(n int) (*Page, error) {
	pages, err := d.loadPages()
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(pages) {
		return nil, fmt.Errorf("page %d is out of range 1-%d", n, len(pages))
	}
	return pages[n-1], nil
}

// Pages returns every page in document order.
func (d *Document) Pages() ([]annotate.Page, error) {
	pages, err := d.loadPages()
	if err != nil {
		return nil, err
	}
	out := make([]annotate.Page, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out, nil
}

func (d *Document) loadPages() ([]*Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return nil, ErrClosed
	}
	if d.pages != nil {
		return d.pages, nil
	}

	pages := make([]*Page, 0, d.NumPages)
	for i := range d.NumPages {
		cpage := C.poppler_document_get_page(d.doc, C.int(i))
		if cpage == nil {
			for _, p := range pages {
				C.g_object_unref(C.gpointer(p.page))
			}
			return nil, fmt.Errorf("failed to load page %d", i+1)
		}

		var width, height C.double
		C.poppler_page_get_size(cpage, &width, &height)
		pages = append(pages, &Page{
			doc:    d,
			page:   cpage,
			number: i + 1,
			Width:  float64(width),
			Height: float64(height),
		})
	}
	d.pages = pages
	return pages, nil
}
