package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"extportal/internal/domain"
)

// SupabaseProvider implements IdentityProvider against the Supabase
// Auth (GoTrue) REST API using the service role key.
type SupabaseProvider struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewSupabaseProvider creates a new Supabase Auth client.
// Requires the service role key (SUPABASE_KEY) for the admin endpoints.
func NewSupabaseProvider(supabaseURL, serviceKey string) *SupabaseProvider {
	return &SupabaseProvider{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type createUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
}

// SignIn exchanges an email/password pair for a session.
func (p *SupabaseProvider) SignIn(email, password string) (*Session, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/token?grant_type=password", p.supabaseURL)

	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign-in request: %w", err)
	}

	resp, err := p.do("POST", endpoint, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("sign in %s: %w", email, domain.ErrUnauthorized)
		}
		return nil, readAPIError("sign in", resp)
	}

	var session signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}

	return &Session{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		UserID:       session.User.ID,
		Email:        session.User.Email,
	}, nil
}

// SignUp creates a new confirmed account with the given metadata.
// An existing account with the same email yields domain.ErrConflict.
func (p *SupabaseProvider) SignUp(email, password string, meta MetadataPatch) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/admin/users", p.supabaseURL)

	payload := createUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
		UserMetadata: meta.asMap(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	resp, err := p.do("POST", endpoint, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if isAlreadyRegistered(resp.StatusCode, respBody) {
			return "", fmt.Errorf("account %s: %w", email, domain.ErrConflict)
		}
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var created userResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}

	return created.ID, nil
}

// UpdatePassword sets a new password on an existing account.
func (p *SupabaseProvider) UpdatePassword(email, newPassword string) error {
	return p.updateUser(email, map[string]interface{}{"password": newPassword})
}

// UpdateMetadata merges the non-nil patch fields into the account metadata.
func (p *SupabaseProvider) UpdateMetadata(email string, meta MetadataPatch) error {
	fields := meta.asMap()
	if len(fields) == 0 {
		return nil
	}
	return p.updateUser(email, map[string]interface{}{"user_metadata": fields})
}

// RequestPasswordReset triggers the recovery email flow.
func (p *SupabaseProvider) RequestPasswordReset(email, redirectTo string) error {
	endpoint := fmt.Sprintf("%s/auth/v1/recover", p.supabaseURL)
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("failed to marshal recover request: %w", err)
	}

	resp, err := p.do("POST", endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError("request password reset", resp)
	}

	return nil
}

func (p *SupabaseProvider) updateUser(email string, fields map[string]interface{}) error {
	userID, err := p.findUserIDByEmail(email)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", p.supabaseURL, userID)

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal update request: %w", err)
	}

	resp, err := p.do("PUT", endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError("update user", resp)
	}

	return nil
}

// findUserIDByEmail searches for a user by email and returns their ID.
func (p *SupabaseProvider) findUserIDByEmail(email string) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/admin/users?per_page=1000", p.supabaseURL)

	resp, err := p.do("GET", endpoint, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError("list users", resp)
	}

	var listResp listUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return "", fmt.Errorf("failed to decode list response: %w", err)
	}

	for _, user := range listResp.Users {
		if strings.EqualFold(user.Email, email) {
			return user.ID, nil
		}
	}

	return "", fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
}

func (p *SupabaseProvider) do(method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", domain.ErrUnavailable)
	}

	return resp, nil
}

func readAPIError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
}

// isAlreadyRegistered detects GoTrue's duplicate-account responses.
func isAlreadyRegistered(status int, body []byte) bool {
	if status != http.StatusUnprocessableEntity && status != http.StatusConflict && status != http.StatusBadRequest {
		return false
	}
	return bytes.Contains(bytes.ToLower(body), []byte("already")) ||
		bytes.Contains(body, []byte("email_exists"))
}

func (m MetadataPatch) asMap() map[string]interface{} {
	fields := make(map[string]interface{})
	if m.Name != nil {
		fields["name"] = *m.Name
	}
	if m.CNPJ != nil {
		fields["cnpj"] = *m.CNPJ
	}
	if m.Role != nil {
		fields["role"] = *m.Role
	}
	if m.TenantID != nil {
		fields["clientId"] = *m.TenantID
	}
	if m.Disabled != nil {
		fields["disabled"] = *m.Disabled
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
