package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"extportal/internal/domain/services"
	"extportal/internal/httputil"
)

// maxUploadSize caps document uploads at 50MB.
const maxUploadSize = 50 << 20

// DocumentHandler exposes the document store over HTTP.
type DocumentHandler struct {
	docs   services.DocumentStore
	logger *slog.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(docs services.DocumentStore, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: logger}
}

// RegisterRoutes wires the document endpoints onto the mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tenants/{tenantID}/documents", h.list)
	mux.HandleFunc("POST /api/tenants/{tenantID}/documents", h.upload)
	mux.HandleFunc("PATCH /api/tenants/{tenantID}/documents/{id}", h.move)
	mux.HandleFunc("DELETE /api/tenants/{tenantID}/documents/{id}", h.delete)
	mux.HandleFunc("GET /api/tenants/{tenantID}/documents/{id}/download", h.download)
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"))
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, docs)
}

// upload accepts a multipart form with a "file" part and an optional
// "folder_id" field.
func (h *DocumentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	var folderID *string
	if v := r.FormValue("folder_id"); v != "" {
		folderID = &v
	}

	doc, err := h.docs.Add(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), &services.DocumentUpload{
		FileName:    header.Filename,
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		FolderID:    folderID,
	})
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, doc)
}

type moveDocumentRequest struct {
	FolderID httputil.OptionalString `json:"folder_id"` // null moves to the root
}

func (h *DocumentHandler) move(w http.ResponseWriter, r *http.Request) {
	var req moveDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.FolderID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "folder_id is required (null for the root)")
		return
	}

	err := h.docs.Move(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), r.PathValue("id"), req.FolderID.Value)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.docs.Remove(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), r.PathValue("id"))
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) download(w http.ResponseWriter, r *http.Request) {
	data, doc, err := h.docs.Download(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), r.PathValue("id"))
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
