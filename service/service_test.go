package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/abiiranathan/pdfnotes/export"
	"github.com/abiiranathan/pdfnotes/geom"
	"github.com/abiiranathan/pdfnotes/search"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	num     int
	text    string
	markers []annotate.Marker
}

func (p *fakePage) Number() int                         { return p.num }
func (p *fakePage) Words() ([]geom.Word, error)         { return nil, nil }
func (p *fakePage) Text() (string, error)               { return p.text, nil }
func (p *fakePage) Markers() ([]annotate.Marker, error) { return p.markers, nil }

func (p *fakePage) Rasterize(float64, *geom.Rect) ([]byte, error) {
	return nil, errors.New("no raster")
}

type fakePDF struct {
	pages  []annotate.Page
	closed bool
}

func (d *fakePDF) Pages() ([]annotate.Page, error) { return d.pages, nil }
func (d *fakePDF) Close()                          { d.closed = true }

// opener serves documents by content.
type opener map[string]*fakePDF

func (o opener) open(data []byte) (Document, error) {
	doc, ok := o[string(data)]
	if !ok {
		return nil, errors.New("not a PDF")
	}
	return doc, nil
}

func noted(text string) *fakePDF {
	return &fakePDF{pages: []annotate.Page{
		&fakePage{num: 1, text: "Page one"},
		&fakePage{num: 2, text: "Page two\nmore", markers: []annotate.Marker{
			{ID: "7", Type: annotate.MarkerStickyNote, Contents: text},
		}},
	}}
}

func newService(t *testing.T, docs opener) *Service {
	t.Helper()
	store, err := database.Connect(filepath.Join(t.TempDir(), "notes.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ex := annotate.New(annotate.DefaultConfig(), nil)
	return New(store, ex, WithOpener(docs.open), WithConcurrency(2))
}

func TestExtractBytes(t *testing.T) {
	ctx := context.Background()
	doc := noted("What is ATP?")
	s := newService(t, opener{"one": doc})

	ext, err := s.ExtractBytes(ctx, "bio.pdf", []byte("one"))
	require.NoError(t, err)
	assert.True(t, doc.closed)
	assert.Equal(t, database.DocumentID([]byte("one")), ext.Document.ID)
	assert.Equal(t, "bio.pdf", ext.Document.Name)
	assert.Equal(t, 1, ext.Document.Pages)
	assert.False(t, ext.Document.Fallback)

	stored, idx, err := s.Document(ctx, ext.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, ext.Document, stored)

	want := []annotate.Annotation{{
		Page:     2,
		Type:     annotate.StickyNote,
		Text:     "What is ATP?",
		Context:  "Page two more",
		Key:      "2-7",
		Priority: 2,
	}}
	if diff := cmp.Diff(want, idx.All()); diff != "" {
		t.Errorf("stored index mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractBytesNothingExtractable(t *testing.T) {
	ctx := context.Background()
	s := newService(t, opener{"blank": {pages: []annotate.Page{&fakePage{num: 1}}}})

	_, err := s.ExtractBytes(ctx, "blank.pdf", []byte("blank"))
	assert.ErrorIs(t, err, annotate.ErrNothingExtractable)
	assert.ErrorIs(t, err, annotate.ErrNoRecognizer)

	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

type failingRecognizer struct{}

func (failingRecognizer) RecognizeImage([]byte) (string, error) { return "", errors.New("no engine") }

func TestExtractBytesReportsPageFailures(t *testing.T) {
	ctx := context.Background()
	docs := opener{"scan": {pages: []annotate.Page{&fakePage{num: 1}, &fakePage{num: 2}}}}
	s := newService(t, docs)
	s.extractor = annotate.New(annotate.DefaultConfig(), failingRecognizer{})

	_, err := s.ExtractBytes(ctx, "scan.pdf", []byte("scan"))
	assert.ErrorIs(t, err, annotate.ErrNothingExtractable)

	var failure annotate.PageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failure.Page)
	assert.ErrorContains(t, err, "page 2: failed to render page: no raster")
}

func TestExtractBytesInvalid(t *testing.T) {
	s := newService(t, opener{})
	_, err := s.ExtractBytes(context.Background(), "x.pdf", []byte("junk"))
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorContains(t, err, "unable to open x.pdf: not a PDF")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.pdf"), "")
	writeFile(t, filepath.Join(dir, ".a.pdf"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "sub", "C.PDF"), "")
	writeFile(t, filepath.Join(dir, ".git", "d.pdf"), "")

	files, err := WalkDir(dir, []string{".pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "C.PDF"),
	}, files)

	_, err = WalkDir(filepath.Join(dir, "missing"), []string{".pdf"})
	assert.Error(t, err)
}

func TestExtractDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "one")
	writeFile(t, filepath.Join(dir, "b.pdf"), "broken")
	writeFile(t, filepath.Join(dir, "sub", "c.pdf"), "two")
	writeFile(t, filepath.Join(dir, ".cache", "d.pdf"), "one")

	s := newService(t, opener{"one": noted("first"), "two": noted("second")})

	exts, failures, err := s.ExtractDir(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, exts, 2)
	assert.Equal(t, "a.pdf", exts[0].Document.Name)
	assert.Equal(t, "c.pdf", exts[1].Document.Name)

	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), failures[0].Path)
	assert.ErrorContains(t, failures[0], "b.pdf")
}

func TestExtractDirCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newService(t, opener{"one": noted("first")})
	_, _, err := s.ExtractDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputsAndExport(t *testing.T) {
	ctx := context.Background()
	s := newService(t, opener{"one": noted("Krebs cycle")})

	ext, err := s.ExtractBytes(ctx, "bio.pdf", []byte("one"))
	require.NoError(t, err)
	id := ext.Document.ID

	err = s.PutOutputs(ctx, id, "2-7", database.Generated, database.Outputs{ELI5: "a loop"})
	require.NoError(t, err)
	require.NoError(t, s.PutDiagram(ctx, id, "2-7", []byte("png")))

	err = s.PutOutputs(ctx, id, "9-9", database.Generated, database.Outputs{})
	assert.ErrorIs(t, err, ErrUnknownAnnotation)
	err = s.PutDiagram(ctx, "missing", "2-7", nil)
	assert.ErrorIs(t, err, database.ErrNotFound)

	notes, err := s.Notes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a loop", notes["2-7"].Preferred().ELI5)

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, &buf, id, export.FormatMarkdown))
	assert.Contains(t, buf.String(), "# bio.pdf\n")
	assert.Contains(t, buf.String(), "**Sticky Note**: Krebs cycle")
	assert.Contains(t, buf.String(), "- **ELI5:** a loop")

	assert.ErrorIs(t, s.Export(ctx, &buf, "missing", export.FormatHTML), database.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newService(t, opener{"one": noted("Krebs cycle"), "two": noted("Glycolysis")})

	_, err := s.ExtractBytes(ctx, "a.pdf", []byte("one"))
	require.NoError(t, err)
	_, err = s.ExtractBytes(ctx, "b.pdf", []byte("two"))
	require.NoError(t, err)

	matches, err := s.Search(ctx, "krebs cycle", search.Options{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.pdf", matches[0].DocumentName)
	assert.Equal(t, "Krebs cycle", matches[0].Text)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := newService(t, opener{"one": noted("x marks")})

	ext, err := s.ExtractBytes(ctx, "a.pdf", []byte("one"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, ext.Document.ID))
	_, _, err = s.Document(ctx, ext.Document.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
