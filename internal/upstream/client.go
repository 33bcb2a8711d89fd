package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 32 << 20

// Config configures the Gateway. Endpoint is the vendor API root including
// its version prefix, e.g. https://assets.example.com/api/v1.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Gateway is a stateless factory for per-credential upstream clients. It
// shares one transport (and its connection pool) across all clients.
type Gateway struct {
	endpoint  *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	logger    *slog.Logger
}

func NewGateway(cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("upstream endpoint is required")
	}
	endpoint, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("upstream endpoint must be http or https, got %q", cfg.Endpoint)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("upstream timeout must be positive")
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		endpoint:  endpoint,
		timeout:   cfg.Timeout,
		transport: transport,
		logger:    logger,
	}, nil
}

// Client returns a client that authenticates as secret. It holds no state
// beyond the secret and is cheap to build per request.
func (g *Gateway) Client(secret string) *Client {
	return &Client{
		gateway: g,
		secret:  secret,
		http: &http.Client{
			Timeout:   g.timeout,
			Transport: g.transport,
		},
	}
}

type Client struct {
	gateway *Gateway
	secret  string
	http    *http.Client
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (any, error) {
	if c.secret == "" {
		return nil, &Error{Method: method, Path: path, Message: "upstream credential is missing"}
	}

	target := c.gateway.endpoint.JoinPath(path)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode upstream request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	logger := c.gateway.logger.With("method", method, "path", path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		ue := &Error{
			Method:  method,
			Path:    path,
			Message: transportMessage(method, path, err),
			Err:     err,
		}
		logger.Warn("upstream request failed", "error", ue.Message, "duration_ms", time.Since(start).Milliseconds())
		return nil, ue
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		ue := &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s %s: reading response: %v", method, path, err),
			Err:        err,
		}
		logger.Warn("upstream response read failed", "status", resp.StatusCode, "error", err)
		return nil, ue
	}

	decoded := decodeBody(raw)
	logger.Debug("upstream response",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(decoded, fmt.Sprintf("Request failed with status code %d", resp.StatusCode)),
			Details:    decoded,
		}
		logger.Warn("upstream returned error status", "status", resp.StatusCode, "message", ue.Message)
		return nil, ue
	}

	if softFailure(decoded) {
		ue := &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(decoded, "The inventory system reported an error"),
			Details:    decoded,
		}
		logger.Warn("upstream reported failure in a success response", "message", ue.Message)
		return nil, ue
	}

	return decoded, nil
}

// decodeBody decodes JSON with numbers preserved; anything that is not JSON
// is returned as text.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(trimmed)
	}
	return v
}

// softFailure detects the vendor convention of answering 200 with
// {"status": "error", "messages": ...}.
func softFailure(body any) bool {
	m, ok := body.(map[string]any)
	if !ok {
		return false
	}
	status, _ := m["status"].(string)
	return strings.EqualFold(status, "error")
}

func transportMessage(method, path string, err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Sprintf("%s %s: upstream request timed out", method, path)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s %s: request cancelled", method, path)
	}
	return fmt.Sprintf("%s %s: %v", method, path, err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
