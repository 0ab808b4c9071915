package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the fallback bearer token when the request context carries none.
type TokenSource interface {
	Token() string
	Clear()
}

// StaticToken is a TokenSource holding a single token until cleared.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *StaticToken) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

type contextKey string

const tokenContextKey contextKey = "backend-token"

// WithToken returns a context whose backend calls authenticate as token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the forwarded token, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// Client talks to the transportation REST backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	now        func() time.Time
}

// Option customizes a Client
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a backend client rooted at baseURL (e.g. http://localhost:3000/api)
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: NewStaticToken(""),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do performs one backend call and returns the unwrapped envelope. Every failure is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*Envelope, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")

	params := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if method == http.MethodGet {
		// Cache busting for intermediaries
		params.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, Unknown(0, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, Unknown(0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, fromSource := c.resolveToken(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ Request Error: %s %s: %v", method, path, err)
		return nil, Network(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Network(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		message := errorMessage(respBody, resp.StatusCode)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			if fromSource {
				log.Println("⚠️  Backend rejected service token - clearing it")
				c.tokens.Clear()
			}
		case http.StatusForbidden:
			log.Printf("❌ Forbidden: %s", message)
		case http.StatusNotFound:
			log.Printf("❌ Not Found: %s", message)
		case http.StatusInternalServerError:
			log.Printf("❌ Server Error: %s", message)
		default:
			log.Printf("❌ API Error: %s", message)
		}
		return nil, FromStatus(resp.StatusCode, message)
	}

	env, err := UnwrapEnvelope(respBody)
	if err != nil {
		return nil, Unknown(resp.StatusCode, "unexpected response format", err)
	}
	return env, nil
}

// resolveToken prefers the forwarded user token; expired JWT fallbacks are not sent.
func (c *Client) resolveToken(ctx context.Context) (string, bool) {
	if token := TokenFromContext(ctx); token != "" {
		return token, false
	}
	token := c.tokens.Token()
	if token == "" {
		return "", false
	}
	if tokenExpired(token, c.now()) {
		log.Println("⚠️  Service token expired - clearing it")
		c.tokens.Clear()
		return "", false
	}
	return token, true
}

// tokenExpired reports whether token is a JWT whose exp has passed. Opaque tokens never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

// errorMessage extracts {message}, {error: "..."} or {error: {message}} from an error body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if len(payload.Error) > 0 {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "An error occurred"
}
