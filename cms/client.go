// Package cms is a thin REST client for the headless CMS that owns posts,
// media, users and comments.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/models"
	"golang.org/x/sync/singleflight"
)

// maxResponseBytes caps how much of a CMS reply is read into memory.
const maxResponseBytes = 10 << 20

// Client talks to the CMS REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client

	// reads collapses concurrent identical anonymous GETs into one upstream call.
	reads singleflight.Group
}

// Options carries per-request settings.
type Options struct {
	// Body is JSON-encoded unless RawBody is set.
	Body any

	// RawBody is sent as-is with ContentType (used for multipart uploads).
	RawBody     io.Reader
	ContentType string

	// Locale is sent as Accept-Language (trimmed).
	Locale string

	// AuthToken is the end-user JWT. When empty the server API token is used
	// unless NoServiceToken is set.
	AuthToken      string
	NoServiceToken bool

	Headers map[string]string
}

// New creates a Client from the CMS configuration. Pass nil to build an
// http.Client bounded by cfg.Timeout.
func New(cfg config.CMSConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiToken:   strings.TrimSpace(cfg.APIToken),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured CMS base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a request against path (relative to the base URL unless it is
// absolute) and decodes a JSON reply into out when out is non-nil.
//
// A 204 reply leaves out untouched and returns nil. Any non-2xx reply is
// returned as an *models.AppError whose message is "API <status>: <body>".
func (c *Client) Do(ctx context.Context, method, path string, opts Options, out any) error {
	target := c.resolve(path)

	var (
		body []byte
		err  error
	)
	if method == http.MethodGet && opts.RawBody == nil && c.authHeader(opts) == "" {
		// Only anonymous reads are shared; a user token may change the reply.
		body, err = c.sharedGet(ctx, target, opts)
	} else {
		body, err = c.send(ctx, method, target, opts)
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewAppError(models.ErrCodeCMS, "failed to decode CMS response", err)
	}
	return nil
}

// sharedGet joins or starts the in-flight call for an anonymous GET. The
// shared call is detached from the caller's cancellation and bounded by the
// http.Client timeout; a cancelled caller stops waiting without failing the
// others.
func (c *Client) sharedGet(ctx context.Context, target string, opts Options) ([]byte, error) {
	key := http.MethodGet + " " + target + " " + strings.TrimSpace(opts.Locale)
	shared := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(key, func() (any, error) {
		return c.send(shared, http.MethodGet, target, opts)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body, _ := res.Val.([]byte)
		return body, nil
	case <-ctx.Done():
		return nil, models.NewAppError(models.ErrCodeCMSUnavailable, "CMS request cancelled", ctx.Err())
	}
}

// send executes one HTTP round trip and returns the reply body. A 204 yields
// a nil body.
func (c *Client) send(ctx context.Context, method, target string, opts Options) ([]byte, error) {
	start := time.Now()

	reqBody, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, models.NewAppError(models.ErrCodeInternal, "create CMS request", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if locale := strings.TrimSpace(opts.Locale); locale != "" {
		req.Header.Set("Accept-Language", locale)
	}
	if auth := c.authHeader(opts); auth != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe(method, "error", start)
		slog.Warn("cms request failed", "method", method, "url", target, "error", err)
		return nil, models.NewAppError(models.ErrCodeCMSUnavailable, "CMS request failed", err)
	}
	defer resp.Body.Close()
	observe(method, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		slog.Error("cms api error",
			"status", resp.StatusCode,
			"method", method,
			"url", target,
		)
		return nil, &models.AppError{
			Code:    models.ErrCodeCMS,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("API %d: %s", resp.StatusCode, strings.TrimSpace(string(text))),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, models.NewAppError(models.ErrCodeCMSUnavailable, "failed to read CMS response", err)
	}
	return body, nil
}

// authHeader picks the user token, falling back to the server API token.
func (c *Client) authHeader(opts Options) string {
	if token := strings.TrimSpace(opts.AuthToken); token != "" {
		return "Bearer " + token
	}
	if !opts.NoServiceToken && c.apiToken != "" {
		return "Bearer " + c.apiToken
	}
	return ""
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + path
}

func encodeBody(opts Options) (io.Reader, string, error) {
	if opts.RawBody != nil {
		return opts.RawBody, opts.ContentType, nil
	}
	if opts.Body == nil {
		return nil, "application/json", nil
	}
	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", models.NewAppError(models.ErrCodeInternal, "marshal CMS request", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// unwrapData returns the value of a {"data": X} envelope, or raw unchanged.
func unwrapData(raw json.RawMessage) json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return raw
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return raw
	}
	return env.Data
}

// Ping checks that the CMS answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/_health", Options{NoServiceToken: true, Headers: map[string]string{"Cache-Control": "no-cache"}}, nil)
}
