package annotate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/abiiranathan/pdfnotes/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageText = "Cell biology\nThe mitochondria is the powerhouse of the cell.\r\nWhy?\r"

func annotatedDoc() *fakeDoc {
	return &fakeDoc{pages: []*fakePage{
		{
			num:  1,
			text: "  " + pageText + "  ",
			words: []geom.Word{
				word("The", 10, 30, 22),
				word("mitochondria", 35, 30, 80),
				word("is", 120, 30, 10),
			},
			markers: []Marker{
				{ID: "12", Type: MarkerFreeText, Contents: "Review this!"},
				{ID: "13", Type: MarkerStickyNote, Contents: "What does ATP stand for?"},
				{ID: "14", Type: MarkerHighlight, Quads: []geom.Quad{
					quad(geom.Rect{X: 8, Y: 29, Width: 110, Height: 12}),
				}},
				{ID: "15", Type: MarkerOther, Contents: "a link"},
				{ID: "16", Type: MarkerStickyNote},
			},
		},
		{num: 2, text: "nothing here"},
		{
			num:    3,
			text:   "Page three",
			raster: []byte("ink-3"),
			markers: []Marker{
				{ID: "40", Type: MarkerInk, Rect: geom.Rect{X: 100, Y: 200, Width: 50, Height: 20}},
			},
		},
	}}
}

func TestClassify(t *testing.T) {
	rec := &textRecognizer{texts: map[string]string{"ink": "  electron chain \n"}}
	e := New(DefaultConfig(), rec)
	p := &fakePage{
		num:    1,
		raster: []byte("ink"),
		words:  []geom.Word{word("Krebs", 0, 0, 30), word("cycle", 35, 0, 30)},
	}

	tests := []struct {
		name   string
		marker Marker
		want   SemanticType
		text   string
		ok     bool
	}{
		{"free text", Marker{Type: MarkerFreeText, Contents: "Review this!"}, FreeText, "Review this!", true},
		{"sticky note verbatim", Marker{Type: MarkerStickyNote, Contents: " note\n"}, StickyNote, " note\n", true},
		{"empty sticky note", Marker{Type: MarkerStickyNote}, "", "", false},
		{"empty free text", Marker{Type: MarkerFreeText}, "", "", false},
		{"blank free text verbatim", Marker{Type: MarkerFreeText, Contents: " \n "}, FreeText, " \n ", true},
		{"highlight", Marker{Type: MarkerHighlight, Quads: []geom.Quad{
			quad(geom.Rect{X: 0, Y: 0, Width: 65, Height: 10}),
		}}, Highlight, "Krebs cycle", true},
		{"highlight over nothing", Marker{Type: MarkerHighlight, Quads: []geom.Quad{
			quad(geom.Rect{X: 300, Y: 300, Width: 65, Height: 10}),
		}}, "", "", false},
		{"ink", Marker{Type: MarkerInk, Rect: geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}}, Handwritten, "electron chain", true},
		{"other", Marker{Type: MarkerOther, Contents: "ignored"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, text, ok := e.Classify(tt.marker, p)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, st)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestClassifyInkRasterisesMarkerRect(t *testing.T) {
	rec := &textRecognizer{texts: map[string]string{"ink": "scribble"}}
	e := New(DefaultConfig(), rec)
	p := &fakePage{num: 1, raster: []byte("ink")}
	rect := geom.Rect{X: 10, Y: 20, Width: 30, Height: 40}

	_, _, ok := e.Classify(Marker{Type: MarkerInk, Rect: rect}, p)
	require.True(t, ok)
	require.Len(t, p.rasters, 1)
	assert.Equal(t, 2.0, p.rasters[0].scale)
	require.NotNil(t, p.rasters[0].clip)
	assert.Equal(t, rect, *p.rasters[0].clip)
}

func TestClassifyInkFailures(t *testing.T) {
	ink := Marker{Type: MarkerInk, Rect: geom.Rect{Width: 10, Height: 10}}

	t.Run("empty recognition", func(t *testing.T) {
		rec := &textRecognizer{texts: map[string]string{"ink": "  \n"}}
		_, _, ok := New(DefaultConfig(), rec).Classify(ink, &fakePage{raster: []byte("ink")})
		assert.False(t, ok)
	})
	t.Run("recognition error", func(t *testing.T) {
		rec := &textRecognizer{errs: map[string]error{"ink": errors.New("engine crashed")}}
		_, _, ok := New(DefaultConfig(), rec).Classify(ink, &fakePage{raster: []byte("ink")})
		assert.False(t, ok)
	})
	t.Run("render error", func(t *testing.T) {
		rec := &textRecognizer{}
		_, _, ok := New(DefaultConfig(), rec).Classify(ink, &fakePage{rasterErr: errors.New("bad page")})
		assert.False(t, ok)
	})
	t.Run("no recognizer", func(t *testing.T) {
		p := &fakePage{raster: []byte("ink")}
		_, _, ok := New(DefaultConfig(), nil).Classify(ink, p)
		assert.False(t, ok)
		assert.Empty(t, p.rasters)
	})
}

func TestCollect(t *testing.T) {
	rec := &textRecognizer{texts: map[string]string{"ink-3": "oxidative phosphorylation"}}
	e := New(DefaultConfig(), rec)

	idx, err := e.Collect(context.Background(), annotatedDoc())
	require.NoError(t, err)

	context1 := "Cell biology The mitochondria is the powerhouse of the cell. Why?"
	want := []Annotation{
		{Page: 1, Type: FreeText, Text: "Review this!", Context: context1, Key: "1-12", Priority: 1},
		{Page: 1, Type: StickyNote, Text: "What does ATP stand for?", Context: context1, Key: "1-13", Priority: 2},
		{Page: 1, Type: Highlight, Text: "The mitochondria", Context: context1, Key: "1-14", Priority: 1},
		{Page: 3, Type: Handwritten, Text: "oxidative phosphorylation", Context: "Page three", Key: "3-40", Priority: 1},
	}
	if diff := cmp.Diff(want, idx.All()); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{1, 3}, idx.Pages())
	assert.Empty(t, idx.Annotations(2), "pages without annotations are absent")
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 4, idx.Count())
}

func TestCollectKeysAreStable(t *testing.T) {
	rec := &textRecognizer{texts: map[string]string{"ink-3": "oxidative phosphorylation"}}
	e := New(DefaultConfig(), rec)
	doc := annotatedDoc()

	keys := func() []string {
		idx, err := e.Collect(context.Background(), doc)
		require.NoError(t, err)
		var out []string
		for _, a := range idx.All() {
			out = append(out, a.Key)
		}
		return out
	}
	first := keys()
	assert.Equal(t, first, keys())
}

func TestCollectConcurrentMatchesSequential(t *testing.T) {
	rec := &textRecognizer{texts: map[string]string{"ink-3": "oxidative phosphorylation"}}

	seq, err := New(DefaultConfig(), rec).Collect(context.Background(), annotatedDoc())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Concurrency = 4
	par, err := New(cfg, rec).Collect(context.Background(), annotatedDoc())
	require.NoError(t, err)

	if diff := cmp.Diff(seq.All(), par.All()); diff != "" {
		t.Errorf("concurrent Collect() mismatch (-seq +par):\n%s", diff)
	}
}

func TestCollectSkipsUnreadablePages(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{num: 1, markersErr: errors.New("broken annotation dictionary")},
		{num: 2, markers: []Marker{{ID: "a0", Type: MarkerFreeText, Contents: "kept"}}},
	}}
	idx, err := New(DefaultConfig(), nil).Collect(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, idx.Pages())
}

func TestCollectEmptyDocument(t *testing.T) {
	doc := &fakeDoc{pages: []*fakePage{
		{num: 1, markers: []Marker{{ID: "1", Type: MarkerOther}}},
		{num: 2},
	}}
	idx, err := New(DefaultConfig(), nil).Collect(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, idx.Empty())
	assert.Zero(t, idx.Len())
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig(), nil).Collect(ctx, annotatedDoc())
	assert.ErrorIs(t, err, context.Canceled)

	cfg := DefaultConfig()
	cfg.Concurrency = 2
	_, err = New(cfg, nil).Collect(ctx, annotatedDoc())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectPagesError(t *testing.T) {
	_, err := New(DefaultConfig(), nil).Collect(context.Background(), &fakeDoc{err: errors.New("encrypted")})
	assert.Error(t, err)
}

func scanDoc() *fakeDoc {
	return &fakeDoc{pages: []*fakePage{
		{num: 1, raster: []byte("page-1")},
		{num: 2, raster: []byte("page-2")},
		{num: 3, rasterErr: errors.New("corrupt content stream")},
		{num: 4, raster: []byte("page-4")},
	}}
}

func TestRunFallback(t *testing.T) {
	rec := &textRecognizer{
		texts: map[string]string{
			"page-1": "Photosynthesis\nlight reactions\n",
			"page-2": "   ",
		},
		errs: map[string]error{"page-4": errors.New("engine crashed")},
	}
	e := New(DefaultConfig(), rec)

	res, err := e.RunFallback(context.Background(), scanDoc())
	require.NoError(t, err)

	placeholder := DefaultConfig().EmptyOCRPlaceholder
	want := []Annotation{
		{Page: 1, Type: OCR, Text: "Photosynthesis\nlight reactions", Context: "Photosynthesis\nlight reactions", Key: "1-ocr", Priority: 0},
		{Page: 2, Type: OCR, Text: placeholder, Context: placeholder, Key: "2-ocr", Priority: 0},
	}
	if diff := cmp.Diff(want, res.Index.All()); diff != "" {
		t.Errorf("RunFallback() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Failures, 2)
	assert.Equal(t, 3, res.Failures[0].Page)
	assert.Equal(t, 4, res.Failures[1].Page)
	assert.Contains(t, res.Failures[1].Error(), "page 4")
	assert.Empty(t, res.Highlights)
}

func TestRunFallbackRendersAtScale(t *testing.T) {
	p := &fakePage{num: 1, raster: []byte("page-1")}
	rec := &textRecognizer{texts: map[string]string{"page-1": "text"}}

	cfg := DefaultConfig()
	_, err := New(cfg, rec).RunFallback(context.Background(), &fakeDoc{pages: []*fakePage{p}})
	require.NoError(t, err)
	require.Len(t, p.rasters, 1)
	assert.Equal(t, 2.0, p.rasters[0].scale)
	assert.Nil(t, p.rasters[0].clip)
}

func TestRunFallbackDetectsHighlights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 20 && x < 120 && y >= 30 && y < 50 {
				c = color.RGBA{255, 240, 80, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	raster := buf.Bytes()

	rec := recognizerFunc(func(data []byte) (string, error) {
		if bytes.Equal(data, raster) {
			return "whole page", nil
		}
		return "Calvin cycle", nil
	})
	doc := &fakeDoc{pages: []*fakePage{{num: 1, raster: raster}}}

	res, err := New(DefaultConfig(), rec).RunFallback(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{1: {"Calvin cycle"}}, res.Highlights)
	assert.Equal(t, "whole page", res.Index.Annotations(1)[0].Text)
}

func TestRunFallbackNoRecognizer(t *testing.T) {
	_, err := New(DefaultConfig(), nil).RunFallback(context.Background(), scanDoc())
	assert.ErrorIs(t, err, ErrNoRecognizer)
}

func TestRunFallbackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &textRecognizer{}
	_, err := New(DefaultConfig(), rec).RunFallback(ctx, scanDoc())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract(t *testing.T) {
	t.Run("structured pass wins", func(t *testing.T) {
		rec := &textRecognizer{texts: map[string]string{"ink-3": "oxidative phosphorylation"}}
		res, err := New(DefaultConfig(), rec).Extract(context.Background(), annotatedDoc())
		require.NoError(t, err)
		assert.False(t, res.Fallback)
		assert.Equal(t, 4, res.Index.Count())
	})

	t.Run("falls back when nothing resolves", func(t *testing.T) {
		rec := &textRecognizer{texts: map[string]string{
			"page-1": "one", "page-2": "two", "page-4": "four",
		}}
		res, err := New(DefaultConfig(), rec).Extract(context.Background(), scanDoc())
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Equal(t, []int{1, 2, 4}, res.Index.Pages())
		for _, a := range res.Index.All() {
			assert.Equal(t, OCR, a.Type)
			assert.Zero(t, a.Priority)
		}
		require.Len(t, res.Failures, 1)
		assert.Equal(t, 3, res.Failures[0].Page)
	})

	t.Run("nothing extractable", func(t *testing.T) {
		doc := &fakeDoc{pages: []*fakePage{{num: 1, rasterErr: errors.New("blank")}}}
		res, err := New(DefaultConfig(), &textRecognizer{}).Extract(context.Background(), doc)
		assert.ErrorIs(t, err, ErrNothingExtractable)
		require.NotNil(t, res)
		assert.Len(t, res.Failures, 1)
	})

	t.Run("nothing extractable without recognizer", func(t *testing.T) {
		_, err := New(DefaultConfig(), nil).Extract(context.Background(), scanDoc())
		assert.ErrorIs(t, err, ErrNothingExtractable)
		assert.ErrorIs(t, err, ErrNoRecognizer)
	})
}

type recognizerFunc func([]byte) (string, error)

func (f recognizerFunc) RecognizeImage(data []byte) (string, error) {
	return f(data)
}
