package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/podium-data/delivery.report/internal/httputil"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

// Client is a typed consumer of the report API for tools that read sessions
// over HTTP instead of opening the database directly.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient creates a report API client for the given base URL
// (e.g. "http://localhost:8080"). A nil httpClient uses the standard client.
func NewClient(baseURL string, httpClient httputil.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Health checks the server and returns its reported version.
func (c *Client) Health() (string, error) {
	var body map[string]string
	if err := c.getJSON("/api/health", &body); err != nil {
		return "", err
	}
	return body["version"], nil
}

// ListSessions returns up to limit session summaries, newest first.
func (c *Client) ListSessions(limit int) ([]SessionSummary, error) {
	path := "/api/sessions"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprint(limit))
	}
	var summaries []SessionSummary
	if err := c.getJSON(path, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetSession fetches one full session record, or (nil, nil) when the server
// reports it absent.
func (c *Client) GetSession(sessionID string) (*sqlite.SessionRecord, error) {
	resp, err := c.http.Get(c.baseURL + "/api/sessions/" + url.PathEscape(sessionID))
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch session %s: server returned %d", sessionID, resp.StatusCode)
	}

	var rec sqlite.SessionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: server returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}
