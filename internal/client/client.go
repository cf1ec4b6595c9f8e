// Package client is a typed HTTP and websocket client for the tripboard API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	newKey  func() string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		newKey:  uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// do sends body as JSON and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, hdr http.Header) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json marshal error: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("json decode error: %w", err)
	}
	return nil
}

// create POSTs with a fresh idempotency key so a retried call cannot duplicate the record.
func (c *Client) create(ctx context.Context, path string, body any) (string, error) {
	var out struct {
		Id string `json:"id"`
	}
	hdr := http.Header{}
	hdr.Set(idempotencyHeader, c.newKey())
	if err := c.do(ctx, http.MethodPost, path, body, &out, hdr); err != nil {
		return "", err
	}
	return out.Id, nil
}

func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{Status: res.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
}

func escape(s string) string { return url.PathEscape(s) }
