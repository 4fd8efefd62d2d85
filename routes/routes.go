package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/abiiranathan/pdfnotes/export"
	"github.com/abiiranathan/pdfnotes/search"
	"github.com/abiiranathan/pdfnotes/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps err to a status code.
func writeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, service.ErrUnknownAnnotation):
		status = http.StatusNotFound
	case errors.Is(err, annotate.ErrNothingExtractable), errors.Is(err, service.ErrUnreadable):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	}
	writeMessage(w, status, err.Error())
}

func ListDocuments(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := svc.Documents(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// UploadDocument extracts the PDF sent in the "file" form field.
func UploadDocument(svc *service.Service, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, err)
				return
			}
			writeMessage(w, http.StatusBadRequest, "expected a PDF in the file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, err)
			return
		}

		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			writeMessage(w, http.StatusBadRequest, "Invalid file: not a PDF")
			return
		}

		ext, err := svc.ExtractBytes(r.Context(), header.Filename, data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ext)
	}
}

// GetDocument returns a document with its index. With ?page=N it returns
// the annotations of that page in display order instead.
func GetDocument(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, idx, err := svc.Document(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}

		page := r.URL.Query().Get("page")
		if page == "" {
			writeJSON(w, http.StatusOK, map[string]any{"document": doc, "index": idx})
			return
		}

		n, err := strconv.Atoi(page)
		if err != nil || !slices.Contains(idx.Pages(), n) {
			writeMessage(w, http.StatusNotFound, "Invalid page: no annotations on page "+page)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"document":    doc,
			"page":        n,
			"annotations": idx.ByPriority(n),
		})
	}
}

func DeleteDocument(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetNotes(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notes, err := svc.Notes(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

type outputsRequest struct {
	Kind          string `json:"-" validate:"oneof=generated accepted"`
	ELI5          string `json:"eli5" validate:"max=20000"`
	Mnemonic      string `json:"mnemonic" validate:"max=20000"`
	Analogy       string `json:"analogy" validate:"max=20000"`
	DiagramPrompt string `json:"diagram_prompt" validate:"max=20000"`
}

// PutOutputs stores the study aids of one annotation. The kind path value
// is "generated" or "accepted".
func PutOutputs(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req outputsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
			return
		}
		req.Kind = r.PathValue("kind")

		if err := validate.Struct(req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}

		o := database.Outputs{
			ELI5:          req.ELI5,
			Mnemonic:      req.Mnemonic,
			Analogy:       req.Analogy,
			DiagramPrompt: req.DiagramPrompt,
		}
		err := svc.PutOutputs(r.Context(), r.PathValue("id"), r.PathValue("key"), database.OutputKind(req.Kind), o)
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PutDiagram stores the PNG request body as the diagram of an annotation.
func PutDiagram(svc *service.Service, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			writeError(w, err)
			return
		}

		if http.DetectContentType(data) != "image/png" {
			writeMessage(w, http.StatusBadRequest, "Invalid diagram: not a PNG")
			return
		}

		if err := svc.PutDiagram(r.Context(), r.PathValue("id"), r.PathValue("key"), data); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportDocument sends the study guide as an attachment. ?format= picks
// one of export.Formats, markdown by default.
func ExportDocument(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := export.Format(r.URL.Query().Get("format"))
		if f == "" {
			f = export.FormatMarkdown
		}
		if !slices.Contains(export.Formats, f) {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Invalid format %q", f))
			return
		}

		id := r.PathValue("id")
		doc, _, err := svc.Document(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := svc.Export(r.Context(), &buf, id, f); err != nil {
			writeError(w, err)
			return
		}

		name := strings.TrimSuffix(doc.Name, ".pdf") + "_notes" + f.Extension()
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		buf.WriteTo(w)
	}
}

// Search looks up ?query= in the stored annotations, optionally limited to
// the ?document= ids given.
func Search(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			// Send an empty slice.
			writeJSON(w, http.StatusOK, []search.Match{})
			return
		}

		opts := search.Options{Documents: r.URL.Query()["document"]}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 0 {
				writeMessage(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			opts.Limit = n
		}

		matches, err := svc.Search(r.Context(), query, opts)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}
