package database

import (
	"time"

	"github.com/abiiranathan/pdfnotes/annotate"
)

// Document is an extracted PDF. ID is the hex SHA-256 of the file bytes, so
// re-uploading the same file finds the earlier extraction.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Pages     int       `json:"pages"`    // pages with annotations
	Fallback  bool      `json:"fallback"` // index came from full-page OCR
	CreatedAt time.Time `json:"created_at"`
}

// StoredAnnotation is an annotation together with the document it belongs to.
type StoredAnnotation struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	annotate.Annotation
}

// OutputKind tells machine generated outputs from the ones a user accepted.
type OutputKind string

const (
	Generated OutputKind = "generated"
	Accepted  OutputKind = "accepted"
)

// Outputs are the study aids produced for one annotation.
type Outputs struct {
	ELI5          string `json:"eli5"`
	Mnemonic      string `json:"mnemonic"`
	Analogy       string `json:"analogy"`
	DiagramPrompt string `json:"diagram_prompt"`
}

// Notes holds both kinds of outputs for an annotation. Either may be nil.
type Notes struct {
	Generated *Outputs `json:"generated,omitempty"`
	Accepted  *Outputs `json:"accepted,omitempty"`
}

// Preferred returns the accepted outputs if there are any, else the
// generated ones, else the zero value.
func (n Notes) Preferred() Outputs {
	switch {
	case n.Accepted != nil:
		return *n.Accepted
	case n.Generated != nil:
		return *n.Generated
	default:
		return Outputs{}
	}
}
