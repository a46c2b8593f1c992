// Package client talks to the thermostat panel backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/harveywai/thermopanel/pkg/security"
)

// Thermostat is a backend-owned thermostat as seen by the panel.
type Thermostat struct {
	ID          string  `json:"id"`
	Temperature float64 `json:"temperature"`
}

// Result is the envelope shared by every endpoint.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Err returns an *APIError when the backend reported a failure.
func (r Result) Err(endpoint string) error {
	if r.Success {
		return nil
	}
	return &APIError{Endpoint: endpoint, Message: r.Message}
}

// LoginResult is the /login response.
type LoginResult struct {
	Result
	Role string `json:"role,omitempty"`
}

// SecurityResult is the /update_security response.
type SecurityResult struct {
	Result
	Settings security.Settings `json:"security_enabled"`
}

// ThermostatList is the /list_thermostats response.
type ThermostatList struct {
	Result
	Thermostats []Thermostat `json:"thermostats"`
}

// ThermostatResult is the /add_thermostat response.
type ThermostatResult struct {
	Result
	Thermostat *Thermostat `json:"thermostat,omitempty"`
}

// RemoveResult is the /remove_thermostat response.
type RemoveResult struct {
	Result
	Removed *Thermostat `json:"removed,omitempty"`
}

// DoSResult is the /simulate_dos response.
type DoSResult struct {
	Result
	ResponseTime float64 `json:"response_time"` // seconds
}

// APIError is a failure reported by the backend with success=false.
type APIError struct {
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Endpoint + ": request unsuccessful"
	}
	return e.Endpoint + ": " + e.Message
}

// Client is a session-holding backend client. The session cookie set by
// /login is kept in the client's cookie jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a
// cookie jar loses the session between calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout bounds each request. Zero means no timeout. The timeout is set
// on a copy, so a client given to WithHTTPClient is left untouched whatever
// the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

// New creates a client for the backend at baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends a request and decodes the JSON body into out, whatever the status
// code: the backend reports failures in the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response (status %d): %w", path, resp.StatusCode, err)
	}
	return nil
}

// Login sends the credentials as-is.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout ends the session. The response content is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// UpdateSecurity pushes the full settings value.
func (c *Client) UpdateSecurity(ctx context.Context, settings security.Settings) (*SecurityResult, error) {
	var result SecurityResult
	if err := c.do(ctx, http.MethodPost, "/update_security", nil, settings, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListThermostats fetches the whole collection in server order.
func (c *Client) ListThermostats(ctx context.Context) (*ThermostatList, error) {
	var result ThermostatList
	if err := c.do(ctx, http.MethodGet, "/list_thermostats", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddThermostat asks the backend to create a thermostat with its defaults.
func (c *Client) AddThermostat(ctx context.Context) (*ThermostatResult, error) {
	var result ThermostatResult
	if err := c.do(ctx, http.MethodPost, "/add_thermostat", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveThermostat deletes the thermostat with the given id.
func (c *Client) RemoveThermostat(ctx context.Context, id string) (*RemoveResult, error) {
	body := map[string]string{"thermostat_id": id}

	var result RemoveResult
	if err := c.do(ctx, http.MethodPost, "/remove_thermostat", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetTemperature sends the temperature exactly as typed; the backend parses it.
func (c *Client) SetTemperature(ctx context.Context, id, temperature string) (*Result, error) {
	body := map[string]string{
		"thermostat_id": id,
		"temperature":   temperature,
	}

	var result Result
	if err := c.do(ctx, http.MethodPost, "/set_temperature", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SimulateDoS runs a DoS simulation at the given intensity.
func (c *Client) SimulateDoS(ctx context.Context, intensity string) (*DoSResult, error) {
	query := url.Values{"intensity": {intensity}}

	var result DoSResult
	if err := c.do(ctx, http.MethodGet, "/simulate_dos", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SimulateUnauthorized runs an unauthorized access simulation.
func (c *Client) SimulateUnauthorized(ctx context.Context) (*Result, error) {
	var result Result
	if err := c.do(ctx, http.MethodGet, "/simulate_unauthorized", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
