package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cadenafria/cadenafria-go/auth"
	"github.com/cadenafria/cadenafria-go/routes"
)

const defaultBaseURL = "https://api.cadenafria.io/api"
const defaultUserAgent = "cadenafria-sdk/" + Version
const defaultTimeout = 15 * time.Second

// Config wires storage, transport, logging, and telemetry for the API client.
type Config struct {
	// BaseURL of the dashboard API. Defaults to the hosted deployment.
	BaseURL string
	// Store holds the access credential between runs. Defaults to a
	// FileStore under the user config directory.
	Store CredentialStore
	// HTTPClient to use for all requests. When nil a client with a bounded
	// timeout and a cookie jar (for the refresh cookie) is created. When a
	// client without a jar is supplied, a jar is installed so the refresh
	// endpoint can authenticate itself.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Telemetry  TelemetryHooks
	UserAgent  string
}

// Client provides high-level helpers for interacting with the dashboard API.
// Every request rides the same authorized transport: the stored credential is
// attached on the way out, and 401 responses drive refresh-and-retry
// recovery on the way back.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
	telemetry  TelemetryHooks
	logger     zerolog.Logger
	userAgent  string

	// Grouped service clients.
	Auth     *auth.Client
	Sessions *SessionManager
	Fridges  *FridgesClient
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	store := cfg.Store
	if store == nil {
		fs, err := NewFileStore("")
		if err != nil {
			return nil, fmt.Errorf("sdk: default credential store: %w", err)
		}
		store = fs
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: defaultTimeout}
	}
	jar := base.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
	}
	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	rt := &recoveryTransport{
		next:   next,
		auth:   authChain{bearerAuth{store: store}, requestIDAuth{}},
		logger: logger,
	}
	httpClient := &http.Client{
		Transport:     rt,
		Timeout:       base.Timeout,
		Jar:           jar,
		CheckRedirect: base.CheckRedirect,
	}

	authClient, err := auth.NewClient(auth.Config{
		BaseURL:    normalized,
		HTTPClient: httpClient,
		UserAgent:  ua,
	})
	if err != nil {
		return nil, err
	}

	coordinator := newRefreshCoordinator(authClient, store, logger)
	sessions := newSessionManager(store, authClient, coordinator, logger, cfg.Telemetry)

	// Startup wiring: the transport's recovery and sign-out slots are set
	// exactly once, here.
	rt.refresh = coordinator
	rt.onAuthExhausted = sessions.sessionExpired

	client := &Client{
		baseURL:    normalized,
		httpClient: httpClient,
		store:      store,
		telemetry:  cfg.Telemetry,
		logger:     logger,
		userAgent:  ua,
		Auth:       authClient,
		Sessions:   sessions,
	}
	client.Fridges = &FridgesClient{client: client}
	return client, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("sdk: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("sdk: invalid base URL: %w", err)
	}
	if u.Scheme == "" {
		return "", errors.New("sdk: base URL missing scheme (http/https)")
	}
	if u.Host == "" {
		return "", errors.New("sdk: base URL missing host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func (c *Client) prepare(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	c.prepare(req)
	if c.telemetry.OnHTTPRequest != nil {
		c.telemetry.OnHTTPRequest(req.Context(), req)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.telemetry.OnHTTPResponse != nil {
		c.telemetry.OnHTTPResponse(req.Context(), req, resp, err, time.Since(start))
	}
	c.telemetry.metric(req.Context(), "sdk_http_request_latency_ms", float64(time.Since(start).Milliseconds()), map[string]string{
		"path": req.URL.Path,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) sendAndDecode(ctx context.Context, method, path string, payload, out any) error {
	req, err := c.newJSONRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Get issues an authorized GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.sendAndDecode(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authorized POST with a JSON payload.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	return c.sendAndDecode(ctx, http.MethodPost, path, payload, out)
}

// Patch issues an authorized PATCH with a JSON payload.
func (c *Client) Patch(ctx context.Context, path string, payload, out any) error {
	return c.sendAndDecode(ctx, http.MethodPatch, path, payload, out)
}

// Delete issues an authorized DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.sendAndDecode(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// FridgesClient exposes the fridge endpoints the dashboard widgets read.
type FridgesClient struct {
	client *Client
}

// CountActive returns the number of active fridges.
func (f *FridgesClient) CountActive(ctx context.Context) (int, error) {
	if f == nil || f.client == nil {
		return 0, fmt.Errorf("sdk: fridges client not initialized")
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := f.client.Get(ctx, routes.FridgesCountActive, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}
