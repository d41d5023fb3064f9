// Package api is the HTTP client for the gateway's session endpoints:
// login, signup, logout, push registration, and account maintenance.
// The realtime stream itself is handled by pkg/engine; this package
// only mints and manages the session credentials the engine uses.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
)

// Config controls the API client.
type Config struct {
	// BaseURL is the HTTPS origin of the gateway API.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds each request.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "https://api.lantern.example",
		UserAgent: "lantern-go",
		Timeout:   30 * time.Second,
	}
}

// Client talks to the gateway's REST API.
type Client struct {
	cfg     *Config
	http    *http.Client
	logger  *slog.Logger
	session string
}

// NewClient creates a Client from cfg. A nil cfg uses DefaultConfig.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// SetSession installs the session token used for authenticated calls.
func (c *Client) SetSession(session string) { c.session = session }

// Session returns the current session token.
func (c *Client) Session() string { return c.session }

// AuthToken is a short-lived token required to call Login.
type AuthToken struct {
	Token string `json:"token"`
}

// LoginResult is the outcome of a successful login or signup.
type LoginResult struct {
	Session  string `json:"session"`
	UID      int    `json:"uid"`
	APIHost  string `json:"api_host"`
	WSHost   string `json:"websocket_host"`
	WSPath   string `json:"websocket_path"`
}

// ServerConfig is the gateway's published client configuration.
type ServerConfig struct {
	AuthURL       string `json:"auth_url"`
	UploadLimitMB int    `json:"file_upload_max_mb"`
}

// RequestAuthToken mints the formtoken Login requires.
func (c *Client) RequestAuthToken(ctx context.Context) (*AuthToken, error) {
	var out AuthToken
	if err := c.post(ctx, "/auth-formtoken", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestConfiguration fetches the gateway's client configuration.
func (c *Client) RequestConfiguration(ctx context.Context) (*ServerConfig, error) {
	var out ServerConfig
	if err := c.get(ctx, "/config", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials and a formtoken for a session.
func (c *Client) Login(ctx context.Context, email, password, token string) (*LoginResult, error) {
	form := url.Values{"email": {email}, "password": {password}}
	var out LoginResult
	if err := c.post(ctx, "/login", form, token, &out); err != nil {
		return nil, err
	}
	c.session = out.Session
	return &out, nil
}

// LoginWithAccessLink redeems a one-time access link for a session.
func (c *Client) LoginWithAccessLink(ctx context.Context, link string) (*LoginResult, error) {
	form := url.Values{"access_link": {link}}
	var out LoginResult
	if err := c.post(ctx, "/access-link", form, "", &out); err != nil {
		return nil, err
	}
	c.session = out.Session
	return &out, nil
}

// Signup registers a new account and logs it in.
func (c *Client) Signup(ctx context.Context, realname, email, password, token string) (*LoginResult, error) {
	form := url.Values{
		"realname": {realname},
		"email":    {email},
		"password": {password},
	}
	var out LoginResult
	if err := c.post(ctx, "/signup", form, token, &out); err != nil {
		return nil, err
	}
	c.session = out.Session
	return &out, nil
}

// Logout invalidates the session on the server and clears it locally.
func (c *Client) Logout(ctx context.Context) error {
	form := url.Values{"session": {c.session}}
	err := c.post(ctx, "/logout", form, "", nil)
	c.session = ""
	return err
}

// RequestPassword asks the server to email a password reset link.
func (c *Client) RequestPassword(ctx context.Context, email, token string) error {
	form := url.Values{"email": {email}}
	return c.post(ctx, "/request-password", form, token, nil)
}

// ResendVerifyEmail asks for another verification email.
func (c *Client) ResendVerifyEmail(ctx context.Context) error {
	return c.post(ctx, "/resend-verify-email", url.Values{}, "", nil)
}

// RegisterPush associates a device push token with the session.
func (c *Client) RegisterPush(ctx context.Context, deviceToken string) error {
	form := url.Values{"device_id": {deviceToken}}
	return c.post(ctx, "/apn-register", form, "", nil)
}

// UnregisterPush removes a device push token. The sessionOverride
// allows tearing down a token after logout of the owning session.
func (c *Client) UnregisterPush(ctx context.Context, deviceToken, sessionOverride string) error {
	form := url.Values{"device_id": {deviceToken}}
	if sessionOverride != "" {
		form.Set("session", sessionOverride)
	}
	return c.post(ctx, "/apn-unregister", form, "", nil)
}

// apiError is the wire shape of a failed API call.
type apiError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, token string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("X-Auth-Formtoken", token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.session != "" {
		req.Header.Set("Cookie", "session="+c.session)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return lanterrors.New(lanterrors.CodeConnectFailed).Wrap(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		return lanterrors.New(lanterrors.CodeSessionExpired)
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Message != "" {
			return lanterrors.New(lanterrors.CodeLoginFailed).WithDetail(ae.Message)
		}
		return lanterrors.Newf(lanterrors.CategorySession, "api %s: HTTP %d", req.URL.Path, resp.StatusCode)
	}

	// Some endpoints signal failure with a 200 and success=false.
	var ae apiError
	if json.Unmarshal(data, &ae) == nil && ae.Message != "" && !ae.Success {
		return lanterrors.New(lanterrors.CodeLoginFailed).WithDetail(ae.Message)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
		}
	}
	return nil
}
