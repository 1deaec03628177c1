package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"extportal/internal/auth"
	"extportal/internal/domain/services"
	"extportal/internal/httputil"
)

// SessionHandler exposes login, registration, password recovery and
// the current identity. All but "me" sit outside the auth middleware.
type SessionHandler struct {
	provider      auth.IdentityProvider
	registry      services.TenantRegistry
	adminEmails   []string
	logger        *slog.Logger
	resetRedirect string
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(provider auth.IdentityProvider, registry services.TenantRegistry, adminEmails []string, resetRedirect string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		provider:      provider,
		registry:      registry,
		adminEmails:   adminEmails,
		logger:        logger,
		resetRedirect: resetRedirect,
	}
}

// RegisterPublicRoutes wires the unauthenticated session endpoints.
func (h *SessionHandler) RegisterPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.login)
	mux.HandleFunc("POST /api/session/register", h.register)
	mux.HandleFunc("POST /api/session/recover", h.recover)
}

// RegisterRoutes wires the authenticated session endpoints.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// A blocked tenant fails at the door, before any credentials are
	// checked against the provider.
	if tenant, ok := h.registry.FindByEmail(req.Email); ok && tenant.IsBlocked {
		httputil.RespondError(w, http.StatusForbidden, "this account's organization is blocked")
		return
	}

	session, err := h.provider.SignIn(req.Email, req.Password)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	h.logger.Info("session opened", "email", req.Email)
	httputil.RespondJSON(w, http.StatusOK, loginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	CNPJ     string `json:"cnpj"`
}

// register creates a client-role account. Addresses on the
// administrator allow-list cannot self-register.
func (h *SessionHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	for _, admin := range h.adminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), strings.TrimSpace(req.Email)) {
			httputil.RespondError(w, http.StatusForbidden, "this address cannot self-register")
			return
		}
	}

	role := "client"
	patch := auth.MetadataPatch{Role: &role}
	if req.Name != "" {
		patch.Name = &req.Name
	}
	if req.CNPJ != "" {
		patch.CNPJ = &req.CNPJ
	}
	if tenant, ok := h.registry.FindByEmail(req.Email); ok {
		patch.TenantID = &tenant.ID
	}

	userID, err := h.provider.SignUp(req.Email, req.Password, patch)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	h.logger.Info("account registered", "email", req.Email)
	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

type recoverRequest struct {
	Email string `json:"email"`
}

// recover always answers 204: whether the address exists is not leaked.
func (h *SessionHandler) recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		httputil.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.provider.RequestPasswordReset(req.Email, h.resetRedirect); err != nil {
		h.logger.Warn("password recovery request failed", "email", req.Email, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) me(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, httputil.GetIdentity(r))
}
