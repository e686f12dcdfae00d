package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/motion.check/internal/httputil"
	"github.com/banshee-data/motion.check/internal/motion/session"
)

// Client drives a running motiond over its JSON API.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient creates a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) attemptURL(id string, suffix string) string {
	return c.base + "/api/attempts/" + url.PathEscape(id) + suffix
}

// CreateAttempt starts a session for a width×height surface.
func (c *Client) CreateAttempt(ctx context.Context, width, height float64) (AttemptResponse, error) {
	var out AttemptResponse
	err := httputil.DoJSON(ctx, c.http, http.MethodPost, c.base+"/api/attempts",
		CreateAttemptRequest{Width: width, Height: height}, &out)
	return out, err
}

// Attempt fetches the current snapshot of a session.
func (c *Client) Attempt(ctx context.Context, id string) (AttemptResponse, error) {
	var out AttemptResponse
	err := httputil.DoJSON(ctx, c.http, http.MethodGet, c.attemptURL(id, ""), nil, &out)
	return out, err
}

// SendEvents posts a batch of events and returns the resulting snapshot.
func (c *Client) SendEvents(ctx context.Context, id string, events []session.Event) (AttemptResponse, error) {
	var out AttemptResponse
	err := httputil.DoJSON(ctx, c.http, http.MethodPost, c.attemptURL(id, "/events"),
		EventsRequest{Events: events}, &out)
	return out, err
}

// CloseAttempt stops a session.
func (c *Client) CloseAttempt(ctx context.Context, id string) error {
	return httputil.DoJSON(ctx, c.http, http.MethodDelete, c.attemptURL(id, ""), nil, nil)
}
