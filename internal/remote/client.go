package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 200

// Client talks to the story API. Safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retries       uint
	retryInterval time.Duration
	logger        *slog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithToken sets the bearer token, as if Login had succeeded.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries retries failed GET requests up to n extra times with
// exponential backoff starting at initial. Responses the API rejected with
// a 4xx status are not retried.
func WithRetries(n uint, initial time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryInterval = initial
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a client for the story API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		retryInterval: 500 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token logs out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	if _, err := c.postJSON(ctx, "/register", body); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.postJSON(ctx, "/login", body)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if env.LoginResult == nil || env.LoginResult.Token == "" {
		return LoginResult{}, fmt.Errorf("login: response has no token")
	}
	c.SetToken(env.LoginResult.Token)
	c.logger.Info("logged in", "name", env.LoginResult.Name)
	return *env.LoginResult, nil
}

// FetchStories returns one page of the story feed. The result is never nil.
func (c *Client) FetchStories(ctx context.Context, q Query) ([]Story, error) {
	token := c.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	location := "0"
	if q.WithLocation {
		location = "1"
	}
	params.Set("location", location)

	env, err := c.getJSON(ctx, "/stories?"+params.Encode(), token)
	if err != nil {
		return nil, fmt.Errorf("fetch stories: %w", err)
	}
	if env.ListStory == nil {
		return []Story{}, nil
	}
	return env.ListStory, nil
}

// FetchStory returns one story by id.
func (c *Client) FetchStory(ctx context.Context, id string) (Story, error) {
	token := c.Token()
	if token == "" {
		return Story{}, ErrUnauthenticated
	}

	env, err := c.getJSON(ctx, "/stories/"+url.PathEscape(id), token)
	if err != nil {
		return Story{}, fmt.Errorf("fetch story %s: %w", id, err)
	}
	if env.Story == nil {
		return Story{}, fmt.Errorf("fetch story %s: response has no story", id)
	}
	return *env.Story, nil
}

// AddStory posts a story as a multipart form. Coordinates are sent only
// when both are set.
func (c *Client) AddStory(ctx context.Context, s NewStory) error {
	token := c.Token()
	if token == "" {
		return ErrUnauthenticated
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeStoryForm(w, s); err != nil {
		return fmt.Errorf("add story: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stories", &buf)
	if err != nil {
		return fmt.Errorf("add story: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("add story: %w", err)
	}
	return nil
}

func writeStoryForm(w *multipart.Writer, s NewStory) error {
	if err := w.WriteField("description", s.Description); err != nil {
		return err
	}
	name := s.PhotoName
	if name == "" {
		name = "photo.jpg"
	}
	part, err := w.CreateFormFile("photo", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(s.Photo); err != nil {
		return err
	}
	if s.Lat != nil && s.Lon != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*s.Lat, 'f', -1, 64)); err != nil {
			return err
		}
		if err := w.WriteField("lon", strconv.FormatFloat(*s.Lon, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return w.Close()
}

// FetchPhoto downloads the image at photoURL. Photo URLs are public; no
// token is sent.
func (c *Client) FetchPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	return retry(ctx, c, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("fetch photo: create request: %w", err))
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch photo: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch photo: read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, classifyStatus(&APIError{Status: resp.StatusCode, Message: truncate(string(data))})
		}
		return data, nil
	})
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return envelope{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path, token string) (envelope, error) {
	return retry(ctx, c, func() (envelope, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return envelope{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		env, err := c.do(req)
		if err != nil {
			return envelope{}, classifyStatus(err)
		}
		return env, nil
	})
}

// retry runs op once plus the configured number of retries.
func retry[T any](ctx context.Context, c *Client, op backoff.Operation[T]) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && uint(attempt) <= c.retries {
			c.logger.Warn("story api request failed, retrying", "attempt", attempt, "error", err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.retries+1),
	)
}

// classifyStatus marks client errors permanent so they are not retried.
func classifyStatus(err error) error {
	var ae *APIError
	if errors.As(err, &ae) && ae.Status >= 400 && ae.Status < 500 {
		return backoff.Permanent(err)
	}
	return err
}

// do sends req and decodes the envelope.
func (c *Client) do(req *http.Request) (envelope, error) {
	c.logger.Debug("story api request", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = truncate(string(data))
		}
		return envelope{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return envelope{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.Error {
		return envelope{}, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
