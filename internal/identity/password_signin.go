package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultIdentityToolkitURL is the Google Identity Toolkit REST endpoint.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// PasswordSignIn exchanges an email/password pair for Firebase tokens via the
// Identity Toolkit REST API. The Admin SDK cannot verify passwords.
type PasswordSignIn struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewPasswordSignIn creates a client. An empty baseURL uses DefaultIdentityToolkitURL.
func NewPasswordSignIn(baseURL, apiKey string) *PasswordSignIn {
	if baseURL == "" {
		baseURL = DefaultIdentityToolkitURL
	}
	return &PasswordSignIn{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn performs the password grant.
func (p *PasswordSignIn) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: FIREBASE_WEB_API_KEY is not configured", ErrUnavailable)
	}

	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}
	u := fmt.Sprintf("%s/accounts:signInWithPassword?key=%s", p.baseURL, url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var te toolkitError
		_ = json.NewDecoder(resp.Body).Decode(&te)
		return nil, mapToolkitError(resp.StatusCode, te.Error.Message)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	return &Session{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    out.ExpiresIn,
		UID:          out.LocalID,
		Email:        out.Email,
		DisplayName:  out.DisplayName,
	}, nil
}

func mapToolkitError(status int, message string) error {
	// Messages look like "INVALID_PASSWORD" or "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, code)
	}
	return fmt.Errorf("%w: sign-in failed with status %d: %s", ErrUnavailable, status, message)
}
