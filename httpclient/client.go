// Package httpclient is the JSON REST client shared by the auth service and
// the catalog facade.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds a request when no WithTimeout option is given.
	DefaultTimeout = 10 * time.Second

	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	// HeaderProxyBypass skips the interstitial page of the tunneling proxy in front of the backend.
	HeaderProxyBypass = "ngrok-skip-browser-warning"

	contentTypeJSON = "application/json"
)

// Options describes one request. Headers override the client's defaults.
type Options struct {
	Method  string
	Headers map[string]string
	Query   url.Values
	Body    any
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL string
	http    *http.Client

	headersLock sync.RWMutex
	headers     http.Header

	timeout        time.Duration
	transport      http.RoundTripper
	tokenSource    oauth2.TokenSource
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithTransport sets the base round tripper (defaults to http.DefaultTransport).
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithTokenSource stamps every request with a bearer token read from source
// at send time. Requests go out without Authorization when source has none.
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// WithUnauthorizedHandler runs handler whenever a response is HTTP 401,
// before the error reaches the caller.
func WithUnauthorizedHandler(handler func()) Option {
	return func(c *Client) {
		c.onUnauthorized = handler
	}
}

// WithHeader adds a default header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// New creates a Client. baseURL may be empty if every request uses an absolute URL.
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "[httpclient.New] parse base URL")
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("[httpclient.New] base URL %q must be absolute", baseURL)
		}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: defaultHeaders(),
		timeout: DefaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}

	transport := c.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if c.onUnauthorized != nil {
		transport = &unauthorizedTransport{base: transport, onUnauthorized: c.onUnauthorized}
	}
	if c.tokenSource != nil {
		transport = &bearerTransport{base: transport, source: c.tokenSource}
	}
	c.http = &http.Client{Timeout: c.timeout, Transport: transport}
	return c, nil
}

func defaultHeaders() http.Header {
	h := http.Header{}
	h.Set(HeaderContentType, contentTypeJSON)
	h.Set(HeaderAccept, contentTypeJSON)
	h.Set(HeaderProxyBypass, "true")
	return h
}

// SetAuthToken adds "Authorization: Bearer <token>" to every later request.
func (c *Client) SetAuthToken(token string) {
	c.headersLock.Lock()
	defer c.headersLock.Unlock()
	c.headers.Set(HeaderAuthorization, "Bearer "+token)
}

// RemoveAuthToken undoes SetAuthToken.
func (c *Client) RemoveAuthToken() {
	c.headersLock.Lock()
	defer c.headersLock.Unlock()
	c.headers.Del(HeaderAuthorization)
}

// Request sends one request. Non-2xx responses return a *StatusError and
// network failures a *TransportError.
func (c *Client) Request(ctx context.Context, path string, opts Options) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(path, opts.Query)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Request] new request")
	}
	c.headersLock.RLock()
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	c.headersLock.RUnlock()
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("url", target).Msg("httpclient: no response")
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	log.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Msg("httpclient: response")

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		JSON:       isJSON(resp.Header.Get(HeaderContentType)),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(response)
	}
	return response, nil
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, path, Options{Method: http.MethodGet})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPost, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPut, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPatch, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, path, Options{Method: http.MethodDelete})
}

// resolve uses absolute URLs verbatim and joins relative paths to the base URL.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrap(err, "[Client.resolve] parse path")
	}
	if !u.IsAbs() {
		if c.baseURL == "" {
			return "", errors.Errorf("[Client.resolve] relative path %q without base URL", path)
		}
		if u, err = url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/")); err != nil {
			return "", errors.Wrap(err, "[Client.resolve] join base URL")
		}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[httpclient.encodeBody] marshal")
	}
	return bytes.NewReader(data), nil
}

func isJSON(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return mediaType == contentTypeJSON || strings.HasSuffix(mediaType, "+json")
}
