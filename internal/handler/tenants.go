package handler

import (
	"log/slog"
	"net/http"
	"time"

	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
	"extportal/internal/httputil"
)

// TenantHandler exposes the tenant registry over HTTP.
type TenantHandler struct {
	registry services.TenantRegistry
	logger   *slog.Logger
}

// NewTenantHandler creates a tenant handler.
func NewTenantHandler(registry services.TenantRegistry, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{registry: registry, logger: logger}
}

// RegisterRoutes wires the tenant endpoints onto the mux.
func (h *TenantHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tenants", h.list)
	mux.HandleFunc("POST /api/tenants", h.create)
	mux.HandleFunc("PUT /api/tenants/{id}", h.update)
	mux.HandleFunc("DELETE /api/tenants/{id}", h.delete)
	mux.HandleFunc("POST /api/tenants/{id}/block", h.block)
	mux.HandleFunc("POST /api/tenants/{id}/unblock", h.unblock)
	mux.HandleFunc("GET /api/tenants/selection", h.selected)
	mux.HandleFunc("PUT /api/tenants/selection", h.selectTenant)
}

type tenantRequest struct {
	CNPJ            string     `json:"cnpj"`
	Name            string     `json:"name"`
	Password        string     `json:"password"`
	Email           *string    `json:"email"`
	MaintenanceDate *time.Time `json:"maintenance_date"`
}

type tenantCreatedResponse struct {
	Tenant     *models.Tenant `json:"tenant"`
	Credential string         `json:"credential"` // created | updated | failed | skipped
}

// list reloads the registry and returns the tenants the caller may see:
// administrators the full list, clients only their own.
func (h *TenantHandler) list(w http.ResponseWriter, r *http.Request) {
	ident := httputil.GetIdentity(r)

	if err := h.registry.Load(r.Context(), ident); err != nil {
		HandleError(w, h.logger, err)
		return
	}

	if ident.IsAdmin() {
		httputil.RespondJSON(w, http.StatusOK, h.registry.Snapshot())
		return
	}

	var visible []models.Tenant
	for _, tenant := range h.registry.Snapshot() {
		if h.registry.HasAccess(ident, tenant.ID) {
			visible = append(visible, tenant)
		}
	}
	httputil.RespondJSON(w, http.StatusOK, visible)
}

func (h *TenantHandler) create(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft := services.TenantDraft{
		CNPJ:            req.CNPJ,
		Name:            req.Name,
		Password:        req.Password,
		Email:           req.Email,
		MaintenanceDate: req.MaintenanceDate,
	}

	tenant, outcome, err := h.registry.Add(r.Context(), httputil.GetIdentity(r), &draft)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tenantCreatedResponse{
		Tenant:     tenant,
		Credential: string(outcome),
	})
}

func (h *TenantHandler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req tenantRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ident := httputil.GetIdentity(r)
	current, ok := h.registry.Get(id)
	if !ok || !h.registry.HasAccess(ident, id) {
		// One response for "missing" and "not yours": existence of other
		// tenants is not leaked to clients.
		httputil.RespondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	current.CNPJ = req.CNPJ
	current.Name = req.Name
	current.Password = req.Password
	current.Email = req.Email
	current.UserEmail = req.Email
	current.MaintenanceDate = req.MaintenanceDate

	if err := h.registry.Update(r.Context(), ident, current); err != nil {
		HandleError(w, h.logger, err)
		return
	}

	updated, _ := h.registry.Get(id)
	httputil.RespondJSON(w, http.StatusOK, updated)
}

func (h *TenantHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), httputil.GetIdentity(r), r.PathValue("id")); err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TenantHandler) block(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Block(r.Context(), httputil.GetIdentity(r), r.PathValue("id")); err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TenantHandler) unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Unblock(r.Context(), httputil.GetIdentity(r), r.PathValue("id")); err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	TenantID *string `json:"tenant_id"` // null clears the selection
}

func (h *TenantHandler) selected(w http.ResponseWriter, r *http.Request) {
	tenant := h.registry.Selected()
	if tenant == nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"tenant": nil})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"tenant": tenant})
}

func (h *TenantHandler) selectTenant(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.Select(httputil.GetIdentity(r), req.TenantID); err != nil {
		HandleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
