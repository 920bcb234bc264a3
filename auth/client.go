// Package auth provides the low-level authentication client for the
// CadenaFria dashboard API.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultUserAgent = "CadenaFriaSDK/1"

// Config controls how the auth client talks to the dashboard API.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// Client issues login, refresh and logout requests against the dashboard API.
//
// The refresh call carries no body; the server authenticates it through the
// HTTP client's cookie jar. Supplying that cookie is a precondition of the
// deployment environment, not something this client manages.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Credentials encapsulates the login inputs.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// TurnstileToken is the optional anti-bot challenge response.
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

// CreateUserRequest registers a new account from an invite token.
type CreateUserRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	TurnstileToken    string `json:"turnstileToken"`
	RegistrationToken string `json:"registrationToken"`
	GivenName         string `json:"nombre_usuario"`
	FamilyName        string `json:"apellido_usuario"`
	NationalID        string `json:"identificacion_usuario,omitempty"`
	Phone             string `json:"celular,omitempty"`
}

// TokenResponse mirrors the API response for login and refresh.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	Email       string `json:"email,omitempty"`
	GivenName   string `json:"nombre_usuario,omitempty"`
	FamilyName  string `json:"apellido_usuario,omitempty"`
}

// Error conveys HTTP failures from the dashboard API.
type Error struct {
	Status int
	Body   string
}

func (e Error) Error() string {
	return fmt.Sprintf("sdk/auth: http %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// NewClient constructs a Client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("sdk/auth: base url required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: client,
		userAgent:  ua,
	}, nil
}

// Login exchanges user credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenResponse, error) {
	if strings.TrimSpace(creds.Email) == "" || strings.TrimSpace(creds.Password) == "" {
		return TokenResponse{}, errors.New("sdk/auth: email and password required")
	}
	return c.post(ctx, "/auth/login", creds)
}

// Refresh swaps the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (TokenResponse, error) {
	return c.post(ctx, "/auth/refresh", struct{}{})
}

// Logout revokes the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "/auth/logout", struct{}{})
	return err
}

// CreateUser registers a new account from an invite token and returns the
// issued token response.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (TokenResponse, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return TokenResponse{}, errors.New("sdk/auth: email and password required")
	}
	if strings.TrimSpace(req.RegistrationToken) == "" {
		return TokenResponse{}, errors.New("sdk/auth: registration token required")
	}
	return c.post(ctx, "/auth/create-user", req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (TokenResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return TokenResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, err
	}
	//nolint:errcheck // best-effort cleanup on return
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenResponse{}, err
	}
	if resp.StatusCode >= 400 {
		return TokenResponse{}, Error{Status: resp.StatusCode, Body: string(body)}
	}

	// Logout responds 200/204 with no body; only decode when there is one.
	var tokens TokenResponse
	if len(body) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return TokenResponse{}, err
	}
	return tokens, nil
}
