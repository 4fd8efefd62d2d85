package routes

import (
	"net/http"

	"github.com/abiiranathan/pdfnotes/service"
)

// Options limits request sizes.
type Options struct {
	MaxUploadBytes  int64
	MaxDiagramBytes int64
}

func SetupRoutes(mux *http.ServeMux, svc *service.Service, opts Options) {
	// Documents
	mux.HandleFunc("GET /api/documents", ListDocuments(svc))
	mux.HandleFunc("POST /api/documents", UploadDocument(svc, opts.MaxUploadBytes))
	mux.HandleFunc("GET /api/documents/{id}", GetDocument(svc))
	mux.HandleFunc("DELETE /api/documents/{id}", DeleteDocument(svc))

	// Study aids
	mux.HandleFunc("GET /api/documents/{id}/notes", GetNotes(svc))
	mux.HandleFunc("PUT /api/documents/{id}/annotations/{key}/outputs/{kind}", PutOutputs(svc))
	mux.HandleFunc("PUT /api/documents/{id}/annotations/{key}/diagram", PutDiagram(svc, opts.MaxDiagramBytes))

	// Study guide
	mux.HandleFunc("GET /api/documents/{id}/export", ExportDocument(svc))

	// Search endpoint
	mux.HandleFunc("GET /api/search", Search(svc))
}
