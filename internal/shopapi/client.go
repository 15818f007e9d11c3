// Package shopapi is the typed REST client for the upstream ShopIn commerce
// API. The upstream owns the authoritative cart, catalog, and order data;
// this service only orchestrates on top of it.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopin/storefront-bff/pkg/config"
	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
	"github.com/shopin/storefront-bff/pkg/logger"
)

const errorBodyReadLimit int64 = 4096

var errBaseURLRequired = errors.New("upstream base url is required")

// Client talks to the commerce API on behalf of an authenticated user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the commerce API client from the upstream config.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

// do executes one upstream call and decodes the response body into out.
// Non-2xx responses are mapped onto the shared error taxonomy so callers
// never see raw transport failures.
func (c *Client) do(ctx context.Context, method, path, token string, payload, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "commerce api client not configured")
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal upstream request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute upstream request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapFailure(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A malformed body from the upstream must degrade to a transient
		// dependency failure, never a panic or a decoding crash upstream.
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode upstream response")
	}
	return nil
}

// mapFailure converts an upstream error response into a typed error,
// preserving the upstream message verbatim where one is present.
func (c *Client) mapFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	message := upstreamMessage(raw)

	upstream := &pkgerrors.UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = "upstream rejected the request"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, upstream, message)
	case http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, upstream, "upstream rejected credentials")
	case http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, upstream, message)
	case http.StatusConflict:
		if message == "" {
			message = "upstream conflict"
		}
		return pkgerrors.Wrap(pkgerrors.CodeConflict, upstream, message)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, upstream, "commerce api request failed")
	}
}

// upstreamMessage pulls a human-readable message out of the error body,
// accepting both the enveloped and the flat shape the upstream has used.
func upstreamMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return envelope.Message
}
