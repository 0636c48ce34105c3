// Package gateway talks to the bill tracking REST backend over one cookie
// session, the way the dashboard's browser client does.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/store"
)

// Errors surfaced by the gateway. They are shared with the embedded backends.
var (
	ErrUnauthorized  = store.ErrUnauthorized
	ErrUploadTimeout = store.ErrUploadTimeout
)

type (
	APIError               = store.APIError
	UnexpectedContentError = store.UnexpectedContentError
	UploadError            = store.UploadError
)

const (
	probeKey         = "me"
	probeTTL         = 30 * time.Second
	maxErrorBodySize = 64 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	BlobTimeout    time.Duration
	RetryMax       int
	Logger         *log.Logger
}

// Client implements store.Backend against the REST API.
type Client struct {
	base        *url.URL
	blobTimeout time.Duration
	logger      *log.Logger

	jar   *sessionJar
	plain *http.Client
	retry *retryablehttp.Client

	probe *gocache.Cache
}

var _ store.Backend = (*Client)(nil)

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.BlobTimeout <= 0 {
		opts.BlobTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	c := &Client{
		base:        base,
		blobTimeout: opts.BlobTimeout,
		logger:      opts.Logger.WithComponent(log.ComponentGateway),
		probe:       gocache.New(probeTTL, 2*probeTTL),
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}
	c.jar = jar
	c.plain = &http.Client{Jar: jar, Timeout: opts.RequestTimeout}

	c.retry = retryablehttp.NewClient()
	c.retry.RetryMax = opts.RetryMax
	c.retry.RetryWaitMin = 200 * time.Millisecond
	c.retry.RetryWaitMax = 2 * time.Second
	c.retry.HTTPClient = &http.Client{Jar: jar, Timeout: opts.RequestTimeout}
	c.retry.Logger = c.logger.Logger
	// Hand the last response back so HTML error pages can be reported.
	c.retry.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return c, nil
}

// sessionJar is a cookie jar that can be emptied on logout.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &sessionJar{jar: jar}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *sessionJar) reset() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
}

// resetSession drops every cookie and the cached session probe.
func (c *Client) resetSession() {
	c.jar.reset()
	c.probe.Flush()
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// call sends a JSON request and decodes a JSON answer into out. GET requests
// go through the retrying client; writes are sent once.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, path, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	start := time.Now()
	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodGet {
		var req *retryablehttp.Request
		req, err = retryablehttp.NewRequestWithContext(ctx, method, c.endpoint(path), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err = c.retry.Do(req)
	} else {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint(path), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err = c.plain.Do(req)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldMethod, method, log.FieldPath, path, log.FieldError, err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, method, log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode, log.FieldDuration, time.Since(start).Milliseconds())
	return resp, nil
}

// decode maps a backend response onto out or onto one of the gateway errors.
func (c *Client) decode(resp *http.Response, path string, out any) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		// Auth endpoints report bad credentials with 401 too; only other
		// endpoints mean the session is gone.
		if !strings.HasPrefix(path, "/api/auth/") {
			c.resetSession()
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		return core.ErrAccessDenied
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return &UnexpectedContentError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Path:       path,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if msg, failed := envelopeError(data); failed {
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%d %s", resp.StatusCode, statusText(resp))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// envelope is the shape of backend acknowledgements and failures.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// envelopeError reports a failure carried in an {error} or
// {success:false, message} body.
func envelopeError(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", false
	}
	if env.Error != "" {
		return env.Error, true
	}
	if env.Success != nil && !*env.Success {
		if env.Message == "" {
			return "Unknown error", true
		}
		return env.Message, true
	}
	return "", false
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}
