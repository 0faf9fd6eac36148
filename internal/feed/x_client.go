package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"post-sniper/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.twitter.com"
	DefaultTimeout           = 15 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 1 * time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultRequestsPerMinute = 60
)

// TokenSource returns the bearer token to use. Login calls it again so a
// rotated token is picked up without a restart.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// XOptions configures XClient.
type XOptions struct {
	BaseURL           string
	Tokens            TokenSource
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryDelay        time.Duration
	MaxDelay          time.Duration
	HTTPClient        *http.Client
	Logger            *logrus.Entry
}

// XClient reads posts through the X API v2 with an app bearer token.
// 401/403 responses return ErrUnauthorized immediately; 429 and 5xx are
// retried with exponential backoff.
type XClient struct {
	baseURL    string
	tokens     TokenSource
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	logger     *logrus.Entry

	mu       sync.Mutex
	token    string
	userIDs  map[string]string // handle -> user id
	lastUser string
}

// NewXClient creates an XClient.
func NewXClient(opts XOptions) *XClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Tokens == nil {
		opts.Tokens = StaticToken("")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &XClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		client:     opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		maxDelay:   opts.MaxDelay,
		logger:     logger,
		userIDs:    make(map[string]string),
	}
}

// Login reloads the bearer token and drops cached user ids. When a handle was
// resolved before, it is resolved again to verify the token.
func (c *XClient) Login(ctx context.Context) (bool, error) {
	token, err := c.tokens(ctx)
	if err != nil {
		return false, fmt.Errorf("load bearer token: %w", err)
	}
	if token == "" {
		return false, nil
	}

	c.mu.Lock()
	c.token = token
	c.userIDs = make(map[string]string)
	handle := c.lastUser
	c.mu.Unlock()

	if handle == "" {
		return true, nil
	}
	if _, err := c.userID(ctx, handle); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FetchRecent returns up to limit most recent posts of handle, newest first.
func (c *XClient) FetchRecent(ctx context.Context, handle string, limit int) ([]domain.Post, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, fmt.Errorf("empty handle")
	}

	id, err := c.userID(ctx, handle)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("tweet.fields", "created_at,author_id")

	var resp tweetsResponse
	if err := c.get(ctx, "/2/users/"+url.PathEscape(id)+"/tweets", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch posts of %s: %w", handle, err)
	}

	posts := make([]domain.Post, 0, len(resp.Data))
	for _, t := range resp.Data {
		posts = append(posts, domain.Post{
			ID:        t.ID,
			Author:    handle,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return posts, nil
}

// userID resolves and caches the numeric id of handle.
func (c *XClient) userID(ctx context.Context, handle string) (string, error) {
	c.mu.Lock()
	id, ok := c.userIDs[handle]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var resp userResponse
	if err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(handle), nil, &resp); err != nil {
		return "", fmt.Errorf("resolve %s: %w", handle, err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, handle)
	}

	c.mu.Lock()
	c.userIDs[handle] = resp.Data.ID
	c.lastUser = handle
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"handle": handle, "user_id": resp.Data.ID}).Debug("resolved feed user")
	return resp.Data.ID, nil
}

// get performs a GET with rate limiting and retries, decoding JSON into result.
func (c *XClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.doGet(ctx, endpoint, result)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doGet performs one request. It reports whether a failure is worth retrying.
func (c *XClient) doGet(ctx context.Context, endpoint string, result interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		if token, err = c.tokens(ctx); err != nil {
			return false, fmt.Errorf("load bearer token: %w", err)
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("%w: HTTP %d: %s", ErrUnauthorized, resp.StatusCode, truncate(body))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body))
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return false, fmt.Errorf("unmarshal response: %w", err)
	}
	return false, nil
}

type userResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type tweetsResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

var _ Source = (*XClient)(nil)
