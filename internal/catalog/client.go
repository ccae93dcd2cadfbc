// Package catalog is a client for a wger-compatible exercise and ingredient
// REST API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultPageSize       = 10
	defaultLanguageID     = "2"
	defaultRequestsPerMin = 60
	maxRetries            = 3
	initialBackoff        = 500 * time.Millisecond
	maxBodyBytes          = 4 << 20
)

// ErrNotConfigured is returned by NewClient when the base URL or API key is missing.
var ErrNotConfigured = errors.New("catalog API is not configured")

// Config is the explicit catalog configuration injected at startup.
type Config struct {
	BaseURL        string
	APIKey         string
	LanguageID     string
	Timeout        time.Duration
	PageSize       int
	RequestsPerMin int
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.LanguageID == "" {
		c.LanguageID = defaultLanguageID
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.RequestsPerMin <= 0 {
		c.RequestsPerMin = defaultRequestsPerMin
	}
	return c
}

// Client talks to the catalog API. Requests are rate limited client-side,
// retried with exponential backoff on HTTP 429, and guarded by a circuit
// breaker that fails fast once the API keeps erroring.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerMin)/60.0, 1),
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return fmt.Sprintf("rate limited (HTTP %d)", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func isRateLimit(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// Fetch GETs path (e.g. "/exerciseinfo/") with the language and page-size
// parameters applied, and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("language", c.cfg.LanguageID)
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	}
	u := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/") + "?" + q.Encode()

	var lastErr error
	for attempt := range maxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.get(ctx, u)
		})
		if err == nil {
			return body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("catalog circuit open: %w", err)
		}
		if !isRateLimit(err) {
			return nil, err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("catalog request", "url", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// SearchExercises lists exercises and keeps those matching every word of
// term. When nothing matches, the unfiltered page is returned.
func (c *Client) SearchExercises(ctx context.Context, term string) ([]Exercise, error) {
	body, err := c.Fetch(ctx, "/exerciseinfo/", nil)
	if err != nil {
		return nil, err
	}

	var p page[exerciseInfo]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding exercises: %w", err)
	}

	lang, _ := strconv.Atoi(c.cfg.LanguageID)
	var all, matched []Exercise
	for _, info := range p.Results {
		ex, ok := info.toExercise(lang)
		if !ok {
			continue
		}
		all = append(all, ex)
		if ex.matches(term) {
			matched = append(matched, ex)
		}
	}
	if len(matched) == 0 {
		return all, nil
	}
	return matched, nil
}

// SearchIngredients returns ingredients whose name matches term.
func (c *Client) SearchIngredients(ctx context.Context, term string) ([]Ingredient, error) {
	params := url.Values{}
	if term = strings.TrimSpace(term); term != "" {
		params.Set("name__search", term)
	}
	body, err := c.Fetch(ctx, "/ingredient/", params)
	if err != nil {
		return nil, err
	}

	var p page[ingredientRecord]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding ingredients: %w", err)
	}

	out := make([]Ingredient, 0, len(p.Results))
	for _, r := range p.Results {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		out = append(out, r.toIngredient())
	}
	return out, nil
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
