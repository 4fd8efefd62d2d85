// Package database persists extracted annotation indexes and the study
// aids attached to them in sqlite.
package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Rows per insert. At 8 variables a row this stays below
// SQLITE_MAX_VARIABLE_NUMBER, which is 999 on older builds.
const batchSize = 100

// DocumentID returns the identifier of a PDF's bytes.
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store is a sqlite backed annotation store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Connect opens the sqlite database at path and creates the tables.
func Connect(path string, logger zerolog.Logger) (*Store, error) {
	// Foreign keys and WAL are set per connection through the DSN so that
	// every connection in the pool gets them.
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		dsn = path + "&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// ping the database to ensure we are connected.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create tables: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS documents(
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		pages INTEGER NOT NULL,
		fallback INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS annotations(
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		position INTEGER NOT NULL,
		page INTEGER NOT NULL,
		type TEXT NOT NULL,
		text TEXT NOT NULL,
		context TEXT NOT NULL,
		priority INTEGER NOT NULL,
		PRIMARY KEY(document_id, key)
	);

	CREATE TABLE IF NOT EXISTS outputs(
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		kind TEXT NOT NULL CHECK(kind IN ('generated', 'accepted')),
		eli5 TEXT NOT NULL,
		mnemonic TEXT NOT NULL,
		analogy TEXT NOT NULL,
		diagram_prompt TEXT NOT NULL,
		PRIMARY KEY(document_id, key, kind)
	);

	CREATE TABLE IF NOT EXISTS diagrams(
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		image BLOB NOT NULL,
		PRIMARY KEY(document_id, key)
	);
	`)
	return err
}

// isForeignKeyViolation reports whether err is sqlite rejecting a row
// whose document does not exist.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// SaveDocument stores doc and replaces its annotations with the contents of
// idx. Outputs and diagrams of annotations that still exist are kept.
func (s *Store) SaveDocument(ctx context.Context, doc Document, idx *annotate.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, pages, fallback) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, pages=excluded.pages, fallback=excluded.fallback`,
		doc.ID, doc.Name, idx.Len(), doc.Fallback)
	if err != nil {
		return fmt.Errorf("error saving document %s: %w", doc.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE document_id=?`, doc.ID); err != nil {
		return err
	}

	all := idx.All()
	for i := 0; i < len(all); i += batchSize {
		end := min(i+batchSize, len(all))

		placeholders, args := annotationValueTuple(doc.ID, i, all[i:end])
		query := fmt.Sprintf(`INSERT INTO annotations
			(document_id, key, position, page, type, text, context, priority) VALUES %s`, placeholders)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("error saving annotations of %s: %w", doc.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug().Str("document", doc.ID).Int("annotations", len(all)).Msg("saved document")
	return nil
}

func annotationValueTuple(docID string, offset int, batch []annotate.Annotation) (string, []any) {
	var (
		sb   strings.Builder
		args = make([]any, 0, len(batch)*8)
	)
	for i, a := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, docID, a.Key, offset+i, a.Page, string(a.Type), a.Text, a.Context, a.Priority)
	}
	return sb.String(), args
}

const documentColumns = `id, name, pages, fallback, created_at`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.Pages, &d.Fallback, &d.CreatedAt)
	return d, err
}

// GetDocument returns the document with id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=? LIMIT 1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// Documents returns all documents, newest first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document with everything attached to it.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadIndex rebuilds the annotation index of a document.
func (s *Store) LoadIndex(ctx context.Context, id string) (*annotate.Index, error) {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT page, type, text, context, key, priority FROM annotations
		WHERE document_id=? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []annotate.Annotation
	for rows.Next() {
		var a annotate.Annotation
		if err := rows.Scan(&a.Page, &a.Type, &a.Text, &a.Context, &a.Key, &a.Priority); err != nil {
			return nil, err
		}
		all = append(all, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return annotate.NewIndex(all...), nil
}

// AllAnnotations returns the annotations of every document.
func (s *Store) AllAnnotations(ctx context.Context) ([]StoredAnnotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.document_id, d.name, a.page, a.type, a.text, a.context, a.key, a.priority
		FROM annotations a JOIN documents d ON a.document_id = d.id
		ORDER BY d.name, a.document_id, a.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredAnnotation{}
	for rows.Next() {
		var a StoredAnnotation
		err := rows.Scan(&a.DocumentID, &a.DocumentName, &a.Page, &a.Type, &a.Text, &a.Context, &a.Key, &a.Priority)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PutOutputs stores the outputs of kind for an annotation, replacing any
// earlier ones.
func (s *Store) PutOutputs(ctx context.Context, docID, key string, kind OutputKind, o Outputs) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outputs (document_id, key, kind, eli5, mnemonic, analogy, diagram_prompt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, key, kind) DO UPDATE SET
			eli5=excluded.eli5, mnemonic=excluded.mnemonic,
			analogy=excluded.analogy, diagram_prompt=excluded.diagram_prompt`,
		docID, key, string(kind), o.ELI5, o.Mnemonic, o.Analogy, o.DiagramPrompt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// Notes returns the outputs of a document's annotations, keyed by
// annotation key.
func (s *Store) Notes(ctx context.Context, docID string) (map[string]Notes, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, kind, eli5, mnemonic, analogy, diagram_prompt FROM outputs WHERE document_id=?`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make(map[string]Notes)
	for rows.Next() {
		var (
			key, kind string
			o         Outputs
		)
		if err := rows.Scan(&key, &kind, &o.ELI5, &o.Mnemonic, &o.Analogy, &o.DiagramPrompt); err != nil {
			return nil, err
		}

		n := notes[key]
		if OutputKind(kind) == Accepted {
			n.Accepted = &o
		} else {
			n.Generated = &o
		}
		notes[key] = n
	}
	return notes, rows.Err()
}

// PutDiagram stores the PNG diagram of an annotation.
func (s *Store) PutDiagram(ctx context.Context, docID, key string, png []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagrams (document_id, key, image) VALUES (?, ?, ?)
		ON CONFLICT(document_id, key) DO UPDATE SET image=excluded.image`, docID, key, png)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// Diagrams returns the diagrams of a document keyed by annotation key.
func (s *Store) Diagrams(ctx context.Context, docID string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, image FROM diagrams WHERE document_id=?`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			image []byte
		)
		if err := rows.Scan(&key, &image); err != nil {
			return nil, err
		}
		images[key] = image
	}
	return images, rows.Err()
}
