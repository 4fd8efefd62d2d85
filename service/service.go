// Package service ties extraction, storage, export and search together for
// the command line and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/abiiranathan/pdfnotes/export"
	"github.com/abiiranathan/pdfnotes/pdf"
	"github.com/abiiranathan/pdfnotes/search"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrUnreadable is returned when a file cannot be opened as a PDF.
var ErrUnreadable = errors.New("unable to open")

// Document is an opened PDF.
type Document interface {
	annotate.Document
	Close()
}

// OpenFunc opens a PDF from its bytes.
type OpenFunc func(data []byte) (Document, error)

func openPDF(data []byte) (Document, error) {
	doc, err := pdf.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Service extracts PDFs into a Store.
type Service struct {
	store       *database.Store
	extractor   *annotate.Extractor
	open        OpenFunc
	concurrency int
	logger      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOpener replaces the poppler backed PDF opener.
func WithOpener(open OpenFunc) Option {
	return func(s *Service) { s.open = open }
}

// WithConcurrency sets how many files ExtractDir processes at once.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// New creates a Service.
func New(store *database.Store, extractor *annotate.Extractor, opts ...Option) *Service {
	s := &Service{
		store:       store,
		extractor:   extractor,
		open:        openPDF,
		concurrency: 1,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.concurrency = max(s.concurrency, 1)
	return s
}

// Extraction is a stored document with the result it was built from.
type Extraction struct {
	Document database.Document `json:"document"`
	Result   *annotate.Result  `json:"result"`
}

// ExtractBytes extracts the annotations of a PDF and stores them under the
// document's content id. A document yielding nothing is not stored; the
// error then wraps annotate.ErrNothingExtractable and any page failures.
func (s *Service) ExtractBytes(ctx context.Context, name string, data []byte) (*Extraction, error) {
	doc, err := s.open(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, name, err)
	}
	defer doc.Close()

	res, err := s.extractor.Extract(ctx, doc)
	if res != nil {
		for _, f := range res.Failures {
			s.logger.Warn().Str("document", name).Int("page", f.Page).Err(f.Err).Msg("page not recognised")
		}
	}
	if err != nil {
		// Page failures explain an empty result.
		errs := []error{fmt.Errorf("%s: %w", name, err)}
		if res != nil {
			for _, f := range res.Failures {
				errs = append(errs, f)
			}
		}
		return nil, errors.Join(errs...)
	}

	d := database.Document{
		ID:       database.DocumentID(data),
		Name:     name,
		Fallback: res.Fallback,
	}
	if err := s.store.SaveDocument(ctx, d, res.Index); err != nil {
		return nil, err
	}

	stored, err := s.store.GetDocument(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document", name).
		Str("id", d.ID).
		Int("annotations", res.Index.Count()).
		Bool("fallback", res.Fallback).
		Msg("extracted")
	return &Extraction{Document: stored, Result: res}, nil
}

// ExtractFile is ExtractBytes on the contents of path, named by its base name.
func (s *Service) ExtractFile(ctx context.Context, path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.ExtractBytes(ctx, filepath.Base(path), data)
}

// FileFailure is a file ExtractDir could not extract.
type FileFailure struct {
	Path string
	Err  error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f FileFailure) Unwrap() error {
	return f.Err
}

// ExtractDir extracts every PDF under dir. Files that fail are reported in
// the returned failures and do not stop the others. Extractions come back
// in path order.
func (s *Service) ExtractDir(ctx context.Context, dir string) ([]*Extraction, []FileFailure, error) {
	files, err := WalkDir(dir, []string{".pdf"})
	if err != nil {
		return nil, nil, err
	}

	results := make([]*Extraction, len(files))
	errs := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ext, err := s.ExtractFile(ctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.Warn().Str("path", path).Err(err).Msg("extraction failed")
				errs[i] = err
				return nil
			}
			results[i] = ext
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		extractions []*Extraction
		failures    []FileFailure
	)
	for i, path := range files {
		if errs[i] != nil {
			failures = append(failures, FileFailure{Path: path, Err: errs[i]})
			continue
		}
		extractions = append(extractions, results[i])
	}
	return extractions, failures, nil
}

// Documents lists the stored documents.
func (s *Service) Documents(ctx context.Context) ([]database.Document, error) {
	return s.store.Documents(ctx)
}

// Document returns a stored document with its annotation index.
func (s *Service) Document(ctx context.Context, id string) (database.Document, *annotate.Index, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return database.Document{}, nil, err
	}
	idx, err := s.store.LoadIndex(ctx, id)
	if err != nil {
		return database.Document{}, nil, err
	}
	return doc, idx, nil
}

// DeleteDocument removes a document and everything attached to it.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	return s.store.DeleteDocument(ctx, id)
}

// ErrUnknownAnnotation is returned when outputs are attached to a key the
// document does not have.
var ErrUnknownAnnotation = errors.New("annotation not found")

func (s *Service) checkKey(ctx context.Context, docID, key string) error {
	idx, err := s.store.LoadIndex(ctx, docID)
	if err != nil {
		return err
	}
	if _, ok := idx.Lookup(key); !ok {
		return ErrUnknownAnnotation
	}
	return nil
}

// Notes returns the study aids of a document by annotation key.
func (s *Service) Notes(ctx context.Context, docID string) (map[string]database.Notes, error) {
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	return s.store.Notes(ctx, docID)
}

// PutOutputs attaches study aids to an annotation.
func (s *Service) PutOutputs(ctx context.Context, docID, key string, kind database.OutputKind, o database.Outputs) error {
	if err := s.checkKey(ctx, docID, key); err != nil {
		return err
	}
	return s.store.PutOutputs(ctx, docID, key, kind, o)
}

// PutDiagram attaches a PNG diagram to an annotation.
func (s *Service) PutDiagram(ctx context.Context, docID, key string, png []byte) error {
	if err := s.checkKey(ctx, docID, key); err != nil {
		return err
	}
	return s.store.PutDiagram(ctx, docID, key, png)
}

// Export writes the study guide of a document in format f.
func (s *Service) Export(ctx context.Context, w io.Writer, docID string, f export.Format) error {
	doc, idx, err := s.Document(ctx, docID)
	if err != nil {
		return err
	}

	notes, err := s.store.Notes(ctx, docID)
	if err != nil {
		return err
	}

	diagrams, err := s.store.Diagrams(ctx, docID)
	if err != nil {
		return err
	}

	g := export.Guide{
		Title:    doc.Name,
		Index:    idx,
		Notes:    notes,
		Diagrams: diagrams,
	}
	return export.Write(w, f, g)
}

// Search looks q up in the annotations of every stored document.
func (s *Service) Search(ctx context.Context, q string, opts search.Options) ([]search.Match, error) {
	entries, err := s.store.AllAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	return search.Search(q, entries, opts)
}
