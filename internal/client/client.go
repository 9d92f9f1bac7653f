package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketsync/config"
	"marketsync/internal/realtime"
)

// Client talks to the marketsync backend over its REST API and push channel.
// Every failure it returns is a realtime.ValidationError or realtime.TransportError.
type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	reconnectMin time.Duration
	reconnectMax time.Duration
}

func New(cfg *config.ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoffMin, backoffMax := cfg.ReconnectMin, cfg.ReconnectMax
	if backoffMin <= 0 {
		backoffMin = 500 * time.Millisecond
	}
	if backoffMax < backoffMin {
		backoffMax = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.AccessToken,
		http:         &http.Client{Timeout: timeout},
		reconnectMin: backoffMin,
		reconnectMax: backoffMax,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	op := method + " " + path
	var r io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &realtime.TransportError{Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		r = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, r, result)
}

// send issues one request and decodes a 2xx JSON body into result.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, result interface{}) error {
	op := method + " " + path
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &realtime.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &realtime.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &realtime.TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, respBody)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return &realtime.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError maps a non-2xx response: constraint violations become ValidationError,
// everything else is a TransportError.
func statusError(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		return &realtime.ValidationError{Field: "request", Reason: msg}
	}
	return &realtime.TransportError{Op: op, Err: fmt.Errorf("status %d: %s", status, msg)}
}
