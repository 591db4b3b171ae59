package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type Client struct {
	cfg        Config
	http       *http.Client
	authURL    string
	storageURL string

	auth    *AuthClient
	storage *StorageClient
}

func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	base := strings.TrimRight(cfg.ProjectURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		authURL:    base + "/auth/v1",
		storageURL: base + "/storage/v1",
	}
	c.auth = &AuthClient{client: c}
	c.storage = &StorageClient{client: c}
	return c, nil
}

func (c *Client) Auth() *AuthClient       { return c.auth }
func (c *Client) Storage() *StorageClient { return c.storage }

// do sends body as JSON. bearer defaults to the anon key when empty.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, bearer string) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = c.cfg.AnonKey
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(respBody, resp.StatusCode)
	}
	return respBody, nil
}

// parseError understands both GoTrue ({msg, error_code} or {error,
// error_description}) and Storage ({statusCode, error, message}) bodies.
func parseError(body []byte, status int) error {
	e := &Error{StatusCode: status}
	if !gjson.ValidBytes(body) {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	r := gjson.ParseBytes(body)
	for _, k := range []string{"msg", "message", "error_description", "error"} {
		if v := r.Get(k); v.Exists() && v.Type == gjson.String && v.String() != "" {
			e.Message = v.String()
			break
		}
	}
	for _, k := range []string{"error_code", "code"} {
		if v := r.Get(k); v.Exists() {
			e.Code = v.String()
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
