package handler

import (
	"log/slog"
	"net/http"

	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
	"extportal/internal/httputil"
)

// FolderHandler exposes the folder hierarchy over HTTP.
type FolderHandler struct {
	folders services.FolderManager
	logger  *slog.Logger
}

// NewFolderHandler creates a folder handler.
func NewFolderHandler(folders services.FolderManager, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

// RegisterRoutes wires the folder endpoints onto the mux.
func (h *FolderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tenants/{tenantID}/folders", h.contents)
	mux.HandleFunc("POST /api/tenants/{tenantID}/folders", h.create)
	mux.HandleFunc("PATCH /api/tenants/{tenantID}/folders/{id}", h.patch)
	mux.HandleFunc("DELETE /api/tenants/{tenantID}/folders/{id}", h.delete)
	mux.HandleFunc("GET /api/tenants/{tenantID}/folders/{id}/path", h.path)
}

type createFolderRequest struct {
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id"`
}

// patchFolderRequest carries a rename, a move, or both. The parent
// field distinguishes "absent" from "null": null moves to the root.
type patchFolderRequest struct {
	Name           *string                 `json:"name"`
	ParentFolderID httputil.OptionalString `json:"parent_folder_id"`
}

// contents loads the tenant's folder list and returns one level of it,
// selected by the optional "folder" query parameter (absent = root).
func (h *FolderHandler) contents(w http.ResponseWriter, r *http.Request) {
	ident := httputil.GetIdentity(r)
	tenantID := r.PathValue("tenantID")

	if err := h.folders.LoadTenant(r.Context(), ident, tenantID); err != nil {
		HandleError(w, h.logger, err)
		return
	}

	var folderID *string
	if q := r.URL.Query().Get("folder"); q != "" {
		folderID = &q
	}

	contents, err := h.folders.Contents(ident, tenantID, folderID)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, contents)
}

func (h *FolderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.folders.Create(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), req.Name, req.ParentFolderID)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) patch(w http.ResponseWriter, r *http.Request) {
	var req patchFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil && !req.ParentFolderID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to change")
		return
	}

	ident := httputil.GetIdentity(r)
	tenantID := r.PathValue("tenantID")
	id := r.PathValue("id")

	var folder *models.Folder
	if req.Name != nil {
		renamed, err := h.folders.Rename(r.Context(), ident, tenantID, id, *req.Name)
		if err != nil {
			HandleError(w, h.logger, err)
			return
		}
		folder = renamed
	}
	if req.ParentFolderID.Present {
		moved, err := h.folders.Move(r.Context(), ident, tenantID, id, req.ParentFolderID.Value)
		if err != nil {
			HandleError(w, h.logger, err)
			return
		}
		folder = moved
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) delete(w http.ResponseWriter, r *http.Request) {
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := h.folders.Delete(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), r.PathValue("id"), cascade); err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FolderHandler) path(w http.ResponseWriter, r *http.Request) {
	path, err := h.folders.Path(r.Context(), httputil.GetIdentity(r), r.PathValue("tenantID"), r.PathValue("id"))
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, path)
}
