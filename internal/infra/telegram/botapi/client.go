package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

var (
	ErrNotFound     = errors.New("botapi: file not found")
	ErrFileTooBig   = errors.New("botapi: file is too big")
	ErrUnauthorized = errors.New("botapi: unauthorized")
	ErrServerError  = errors.New("botapi: server error")
)

// Options configures the Bot API client.
type Options struct {
	// BaseURL of the Bot API server.
	// Default: https://api.telegram.org
	BaseURL string

	Token string

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 32
	MaxIdleConnsPerHost int

	// Timeout bounds a whole method call such as getFile.
	// Default: 15s
	Timeout time.Duration

	// ResponseHeaderTimeout bounds the wait for file download headers.
	// The body itself is not time limited.
	// Default: 30s
	ResponseHeaderTimeout time.Duration

	// RetryAttempts is the maximum number of retries of a method call.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 500ms
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 10s
	RetryMaxBackoff time.Duration

	// PathTTL is how long a resolved file_path is cached.
	// Telegram keeps download links valid for at least one hour.
	// Default: 50m
	PathTTL time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		BaseURL:               "https://api.telegram.org",
		MaxIdleConnsPerHost:   32,
		Timeout:               15 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		RetryAttempts:         3,
		RetryBackoff:          500 * time.Millisecond,
		RetryMaxBackoff:       10 * time.Second,
		PathTTL:               50 * time.Minute,
	}
}

// Client talks to the Telegram Bot API. It implements domain.DirectSource.
type Client struct {
	api   *http.Client
	files *http.Client
	opts  Options
	cache domain.Cache
	log   *log.Logger
}

// NewClient creates a client. cache may be nil.
func NewClient(opts Options, cache domain.Cache, logger *log.Logger) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		DisableCompression:    true, // raw bytes so Content-Length and ranges stay exact
	}

	return &Client{
		api:   &http.Client{Transport: transport, Timeout: opts.Timeout},
		files: &http.Client{Transport: transport},
		opts:  opts,
		cache: cache,
		log:   logger,
	}
}

type apiResponse[T any] struct {
	OK          bool                `json:"ok"`
	Result      T                   `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after"`
}

type file struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

type user struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Resolve returns a direct download URL for a Bot API file_id.
func (c *Client) Resolve(ctx context.Context, fileID string) (string, error) {
	key := domain.CacheKeyFilePath(fileID)
	if c.cache != nil {
		if b, err := c.cache.Get(ctx, key); err == nil && len(b) > 0 {
			return c.fileURL(string(b)), nil
		}
	}

	var f file
	if err := call(ctx, c, "getFile", url.Values{"file_id": {fileID}}, &f); err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("getFile %s: %w: empty file_path", fileID, ErrNotFound)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, []byte(f.FilePath), int(c.opts.PathTTL.Seconds()))
	}
	return c.fileURL(f.FilePath), nil
}

// Invalidate forgets the cached file_path of fileID.
func (c *Client) Invalidate(ctx context.Context, fileID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, domain.CacheKeyFilePath(fileID)); err != nil {
		c.log.Printf("drop cached path of %s: %v", fileID, err)
	}
}

// Fetch issues a GET for a resolved file URL. rangeHeader is forwarded as is.
// The caller owns the response body. Only 200 and 206 are returned.
func (c *Client) Fetch(ctx context.Context, fileURL, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", c.scrub(err))
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", c.scrub(err))
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
		return resp, nil
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
	default:
		return nil, fmt.Errorf("fetch file: unexpected status %d", resp.StatusCode)
	}
}

// GetMe returns the bot account.
func (c *Client) GetMe(ctx context.Context) (domain.BotInfo, error) {
	var u user
	if err := call(ctx, c, "getMe", nil, &u); err != nil {
		return domain.BotInfo{}, err
	}
	return domain.BotInfo{Username: u.Username, Name: u.FirstName}, nil
}

func (c *Client) fileURL(path string) string {
	return c.opts.BaseURL + "/file/bot" + c.opts.Token + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) methodURL(method string, params url.Values) string {
	u := c.opts.BaseURL + "/bot" + c.opts.Token + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// call invokes a Bot API method, retrying network failures, 5xx and 429.
func call[T any](ctx context.Context, c *Client, method string, params url.Values, out *T) error {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt, lastErr); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(method, params), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", c.scrub(err))
		}

		start := time.Now()
		resp, err := c.api.Do(req)
		if err != nil {
			lastErr = c.scrub(err)
			c.log.Printf("%s attempt=%d failed after %s: %v", method, attempt+1, time.Since(start), lastErr)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		var body apiResponse[T]
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %s %d", ErrServerError, method, resp.StatusCode)
			c.log.Printf("%s attempt=%d status=%d", method, attempt+1, resp.StatusCode)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			ra := &retryAfterError{method: method, after: retryAfter(body.Parameters)}
			c.log.Printf("%s attempt=%d rate limited, retry after %s", method, attempt+1, ra.after)
			lastErr = ra
			continue
		}
		if decodeErr != nil {
			return fmt.Errorf("%s: decode response: %w", method, decodeErr)
		}
		if !body.OK {
			return methodError(method, resp.StatusCode, body.ErrorCode, body.Description)
		}

		c.log.Printf("%s ok in %s", method, time.Since(start))
		*out = body.Result
		return nil
	}

	return fmt.Errorf("%s failed after %d attempts: %w", method, c.opts.RetryAttempts+1, lastErr)
}

type retryAfterError struct {
	method string
	after  time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("%s: too many requests, retry after %s", e.method, e.after)
}

func retryAfter(p *responseParameters) time.Duration {
	if p == nil || p.RetryAfter <= 0 {
		return 0
	}
	return time.Duration(p.RetryAfter) * time.Second
}

func methodError(method string, status, code int, desc string) error {
	if code == 0 {
		code = status
	}
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "file is too big"):
		return fmt.Errorf("%s: %w", method, ErrFileTooBig)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", method, ErrUnauthorized)
	case code == http.StatusBadRequest || code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", method, ErrNotFound, desc)
	default:
		return fmt.Errorf("%s: error %d: %s", method, code, desc)
	}
}

// backoff waits for an exponentially increasing duration with jitter,
// or for the server supplied delay after a 429.
func (c *Client) backoff(ctx context.Context, attempt int, lastErr error) error {
	var wait time.Duration

	var ra *retryAfterError
	if errors.As(lastErr, &ra) && ra.after > 0 {
		wait = ra.after
	} else {
		backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
		if backoff > c.opts.RetryMaxBackoff {
			backoff = c.opts.RetryMaxBackoff
		}
		// jitter: 0.5 to 1.5 of backoff
		wait = time.Duration(float64(backoff) * (0.5 + rand.Float64()))
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// scrub removes the bot token from URLs embedded in transport errors.
func (c *Client) scrub(err error) error {
	var ue *url.Error
	if c.opts.Token != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, c.opts.Token, "<token>")
	}
	return err
}
