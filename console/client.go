package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credentials supplies the bearer token and is told when the API rejects it.
// *Session implements it.
type Credentials interface {
	Token() (string, bool)
	ForceLogout(ctx context.Context) error
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Client is the HTTP adapter every controller goes through.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	log     *Logger
}

// NewClient returns an adapter for the API at baseURL. creds may be nil for
// unauthenticated tooling.
func NewClient(baseURL string, timeout time.Duration, creds Credentials, log *Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		log:     log,
	}
}

// NewClientWithHTTP lets tests plug in an httptest client.
func NewClientWithHTTP(baseURL string, hc *http.Client, creds Credentials, log *Logger) *Client {
	c := NewClient(baseURL, 0, creds, log)
	c.http = hc
	return c
}

// Do performs req and decodes a successful JSON response into out (which
// may be nil). Failures come back as *APIError; nothing is retried. A 401
// forces the session out before Do returns.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}
	rid := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", rid)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	authed := false
	if c.creds != nil {
		if token, ok := c.creds.Token(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
			authed = true
		}
	}

	c.log.Debugf("-> %s %s rid=%s auth=%t", req.Method, req.Path, rid, authed)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Errorf("<- %s %s rid=%s network error: %v", req.Method, req.Path, rid, err)
		return &APIError{Kind: KindNetwork, Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Errorf("<- %s %s rid=%s read body: %v", req.Method, req.Path, rid, err)
		return &APIError{Kind: KindNetwork, Status: resp.StatusCode, Method: req.Method, Path: req.Path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: serverMessage(data),
			Method:  req.Method,
			Path:    req.Path,
		}
		c.log.Warnf("<- %s %s rid=%s %d in %s: %s", req.Method, req.Path, rid, resp.StatusCode, elapsed, apiErr.Message)
		if apiErr.Kind == KindUnauthorized && c.creds != nil {
			if err := c.creds.ForceLogout(ctx); err != nil {
				c.log.Errorf("forced logout: %v", err)
			}
		}
		return apiErr
	}

	c.log.Infof("<- %s %s rid=%s %d in %s (%d bytes)", req.Method, req.Path, rid, resp.StatusCode, elapsed, len(data))
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodePayload(data, out); err != nil {
		return &APIError{
			Kind:    KindUnknown,
			Status:  resp.StatusCode,
			Message: "malformed response: " + err.Error(),
			Method:  req.Method,
			Path:    req.Path,
		}
	}
	return nil
}

// decodePayload accepts a bare payload or one wrapped as {"data": ...}.
func decodePayload(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(trimmed, &env) == nil && len(env.Data) > 0 && (env.Data[0] == '[' || env.Data[0] == '{') {
			if err := json.Unmarshal(env.Data, out); err == nil {
				return nil
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}
