package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/abiiranathan/pdfnotes/ocr"
	"github.com/abiiranathan/pdfnotes/service"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	c := DefaultConfig()
	c.Database = filepath.Join(t.TempDir(), "notes.db")
	return c
}

func openService(t *testing.T, c *Config) *service.Service {
	t.Helper()
	svc, closeFn, err := Open(c, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(closeFn)
	return svc
}

// seed stores an extracted document directly.
func seed(t *testing.T, c *Config) string {
	t.Helper()
	store, err := database.Connect(c.Database, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	doc := database.Document{ID: database.DocumentID([]byte("bio")), Name: "bio.pdf"}
	idx := annotate.NewIndex(
		annotate.Annotation{Page: 2, Type: annotate.Highlight, Text: "Krebs cycle", Context: "The Krebs cycle", Key: "2-a0", Priority: 1},
		annotate.Annotation{Page: 5, Type: annotate.StickyNote, Text: "Why ATP?", Context: "Energy", Key: "5-9", Priority: 2},
	)
	require.NoError(t, store.SaveDocument(context.Background(), doc, idx))
	return doc.ID
}

func TestSearchCommand(t *testing.T) {
	c := testConfig(t)
	seed(t, c)
	svc := openService(t, c)

	var out bytes.Buffer
	require.NoError(t, Search(context.Background(), svc, "krebs cycle", 0, &out))
	assert.Equal(t, "bio.pdf Page: 2 : Krebs cycle\n", out.String())
}

func TestExportCommand(t *testing.T) {
	c := testConfig(t)
	id := seed(t, c)
	svc := openService(t, c)

	var out bytes.Buffer
	require.NoError(t, Export(context.Background(), svc, id, "md", &out))
	assert.True(t, strings.HasPrefix(out.String(), "# bio.pdf\n"))
	assert.Contains(t, out.String(), "## Slide 5\n")

	err := Export(context.Background(), svc, id, "docx", &out)
	assert.ErrorContains(t, err, `unknown export format "docx"`)

	err = Export(context.Background(), svc, "nope", "md", &out)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func plainPDF(t *testing.T, dir, name string) string {
	t.Helper()
	f := fpdf.New("P", "mm", "A5", "")
	f.SetFont("Helvetica", "", 12)
	f.AddPage()
	f.Text(20, 30, "No annotations here")

	path := filepath.Join(dir, name)
	require.NoError(t, f.OutputFileAndClose(path))
	return path
}

func TestExtractCommandWithoutAnnotations(t *testing.T) {
	if ocr.Enabled {
		t.Skip("full page recognition would find the text")
	}

	c := testConfig(t)
	svc := openService(t, c)
	path := plainPDF(t, t.TempDir(), "plain.pdf")

	var out bytes.Buffer
	err := Extract(context.Background(), svc, path, &out)
	assert.ErrorIs(t, err, annotate.ErrNothingExtractable)
	assert.Empty(t, out.String())
}

func TestExtractDirCommand(t *testing.T) {
	if ocr.Enabled {
		t.Skip("full page recognition would find the text")
	}

	c := testConfig(t)
	svc := openService(t, c)

	dir := t.TempDir()
	plainPDF(t, dir, "a.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("not a pdf"), 0o644))

	var out bytes.Buffer
	err := ExtractDir(context.Background(), svc, dir, &out)
	assert.ErrorContains(t, err, "none of the 2 files")
	assert.Equal(t, 2, strings.Count(out.String(), "failed: "))

	empty := t.TempDir()
	out.Reset()
	require.NoError(t, ExtractDir(context.Background(), svc, empty, &out))
	assert.Empty(t, out.String())
}

func TestOpenInvalidDatabase(t *testing.T) {
	c := DefaultConfig()
	c.Database = filepath.Join(t.TempDir(), "missing", "dir", "notes.db")
	_, _, err := Open(c, zerolog.Nop())
	assert.Error(t, err)
}
