// Package platform is the client SDK for the portal backend: identity,
// table reads and writes, change notifications and object storage.
package platform

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
)

type Client struct {
	baseURL *url.URL
	http    *http.Client

	Auth *AuthClient
}

type options struct {
	httpClient      *http.Client
	storage         SessionStorage
	refreshSchedule string
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithSessionStorage persists the session between runs. Defaults to memory.
func WithSessionStorage(s SessionStorage) Option {
	return func(o *options) { o.storage = s }
}

// WithRefreshSchedule sets the cron spec of the token auto-refresh check.
func WithRefreshSchedule(spec string) Option {
	return func(o *options) { o.refreshSchedule = spec }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	o := options{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		storage:         NewMemorySessionStorage(),
		refreshSchedule: "@every 1m",
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{baseURL: u, http: o.httpClient}
	c.Auth = newAuthClient(c, o.storage, o.refreshSchedule)
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends body as JSON (unless it is an io.Reader already) and decodes a
// successful response into out. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, header http.Header, out interface{}) error {
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	if s := c.Auth.Session(); s != nil {
		h.Set("Authorization", "Bearer "+s.AccessToken)
	}
	return h
}
