package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:5000/api"
	defaultUserAgent = "shopaura/0.1"
	requestTimeout   = 15 * time.Second
	maxErrorBody     = 64 * 1024
)

// Options configure a Client.
type Options struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64 // zero disables client-side throttling
	// OnUnauthorized runs once per 401 response on non-auth routes, before the
	// caller sees ErrUnauthorized. The app uses it to drop the session and
	// navigate to the login entry point.
	OnUnauthorized func()
	Logger         *slog.Logger
	HTTPClient     *http.Client
}

// Client is the single gateway to the storefront backend. Every request
// carries the session cookies held in its jar. A request is one attempt; retry
// policy belongs to the caller.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	jar            http.CookieJar
	userAgent      string
	limiter        *rate.Limiter
	onUnauthorized func()
	log            *slog.Logger
}

// NewClient builds a Client for the backend at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:        base,
		http:           httpClient,
		jar:            httpClient.Jar,
		userAgent:      userAgent,
		onUnauthorized: opts.OnUnauthorized,
		log:            logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// Jar exposes the session cookie jar so other transports (the realtime
// channel) can present the same credentials.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// BaseURL returns a copy of the configured API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Do sends a JSON request and decodes the JSON response into dest (which may
// be nil). body may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, dest any) error {
	return c.doURL(ctx, method, path, "", body, dest)
}

func (c *Client) doQuery(ctx context.Context, method, path string, query url.Values, dest any) error {
	return c.doURL(ctx, method, path, query.Encode(), nil, dest)
}

// doURL expects route to be already path-escaped.
func (c *Client) doURL(ctx context.Context, method, route, rawQuery string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, method, route, rawQuery, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, route, dest)
}

func (c *Client) doMultipart(ctx context.Context, method, path, field, filename string, content io.Reader, dest any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, "", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, path, dest)
}

func (c *Client) newRequest(ctx context.Context, method, route, rawQuery string, body io.Reader) (*http.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	reqURL := c.resolve(route, rawQuery)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) send(req *http.Request, route string, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Path: route}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr.Message = extractMessage(raw)
		if resp.StatusCode == http.StatusUnauthorized && !isAuthRoute(route) {
			c.log.Warn("session rejected by backend", "path", route, "request_id", req.Header.Get("X-Request-ID"))
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
		}
		return apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := checkEnvelope(raw, resp.StatusCode, route); err != nil {
		return err
	}
	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) resolve(route, rawQuery string) *url.URL {
	u := c.baseURL.JoinPath(route)
	u.RawQuery = rawQuery
	return u
}

// checkEnvelope turns a 2xx body carrying {"success": false} into an Error.
func checkEnvelope(raw []byte, status int, route string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}
	if env.Success != nil && !*env.Success {
		return &Error{Status: status, Path: route, Message: env.Message}
	}
	return nil
}

func isAuthRoute(route string) bool {
	return strings.HasPrefix(route, "/auth/")
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
