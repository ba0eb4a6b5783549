// Package wmata fetches rail line and incident data from the WMATA API.
package wmata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public WMATA API endpoint
const DefaultBaseURL = "https://api.wmata.com"

const (
	linesPath     = "/Rail.svc/json/jLines"
	incidentsPath = "/Incidents.svc/json/Incidents"

	// responses larger than this are rejected
	maxBodySize = 4 << 20
)

// Line is a rail line
type Line struct {
	Code string
	Name string
}

// Incident is a rail service disruption
type Incident struct {
	Type          string
	Description   string
	LinesAffected []string
}

// Client talks to the WMATA API
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a client authenticating with apiKey
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lines returns every rail line
func (c *Client) Lines(ctx context.Context) ([]Line, error) {
	body, err := c.getJSON(ctx, linesPath)
	if err != nil {
		return nil, err
	}

	res := gjson.GetBytes(body, "Lines")
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected response from %s: no Lines array", linesPath)
	}

	var lines []Line
	res.ForEach(func(_, v gjson.Result) bool {
		lines = append(lines, Line{
			Code: v.Get("LineCode").String(),
			Name: v.Get("DisplayName").String(),
		})
		return true
	})
	return lines, nil
}

// Incidents returns the current rail incidents
func (c *Client) Incidents(ctx context.Context) ([]Incident, error) {
	body, err := c.getJSON(ctx, incidentsPath)
	if err != nil {
		return nil, err
	}

	res := gjson.GetBytes(body, "Incidents")
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected response from %s: no Incidents array", incidentsPath)
	}

	var incidents []Incident
	res.ForEach(func(_, v gjson.Result) bool {
		incidents = append(incidents, Incident{
			Type:          v.Get("IncidentType").String(),
			Description:   strings.TrimSpace(v.Get("Description").String()),
			LinesAffected: splitLines(v.Get("LinesAffected").String()),
		})
		return true
	})
	return incidents, nil
}

// splitLines parses the API's "RD; BL;" line list
func splitLines(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if code := strings.TrimSpace(part); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// getJSON performs an authenticated GET and returns the validated body
func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from %s", path)
	}
	return body, nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}
