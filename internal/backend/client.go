// Package backend is the HTTP client for the property assistant backend.
// It is the only place that knows the wire shapes; everything it returns
// is already normalized to property.Summary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/proptalk/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	DefaultRatePerSec = 5
	DefaultBurst      = 5
	maxErrorBody      = 512
)

// Client talks to the backend collaborator.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	log     *zap.Logger
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client  // defaults to a fresh http.Client
	Timeout    time.Duration // per request; 0 relies on the transport defaults
	RatePerSec float64       // defaults to DefaultRatePerSec; negative disables limiting
	Burst      int           // defaults to DefaultBurst
	Logger     *zap.Logger
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	perSec := opts.RatePerSec
	if perSec == 0 {
		perSec = DefaultRatePerSec
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	limit := rate.Limit(perSec)
	if perSec < 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		log:     logging.OrNop(opts.Logger),
	}, nil
}

// CreateSession asks the backend for a new session id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, "create session", http.MethodGet, "/chat/create_session", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("backend: create session: empty session_id")
	}
	return out.SessionID, nil
}

// DeleteSession deletes a session server-side.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := "/chat/session/" + url.PathEscape(id)
	return c.do(ctx, "delete session", http.MethodDelete, path, nil, nil)
}

// Chat sends a user query. An empty sessionID is sent as JSON null.
func (c *Client) Chat(ctx context.Context, query, sessionID string) (*ChatReply, error) {
	req := chatRequest{Query: query}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	var raw chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// ListProperties loads the full property list in both shapes and returns
// them normalized.
func (c *Client) ListProperties(ctx context.Context) (*PropertyList, error) {
	var raw listResponse
	if err := c.do(ctx, "list properties", http.MethodGet, "/properties/list_properties", nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// Nearby looks up places of placeType around a property. A payload without
// a nearby.places list yields ErrMalformed.
func (c *Client) Nearby(ctx context.Context, propertyName, placeType string) (*NearbyResult, error) {
	req := nearbyRequest{PropertyName: propertyName, PlaceType: placeType}
	var raw nearbyResponse
	if err := c.do(ctx, "nearby", http.MethodPost, "/properties/nearby", req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize()
}

// Health calls the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "health", http.MethodGet, "/health/", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// do performs one JSON round trip. out may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend: %s: rate limit: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: %s: decode: %w", op, err)
	}
	return nil
}
