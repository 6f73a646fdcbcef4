package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

const (
	defaultBaseURL   = "https://api.scryfall.com"
	defaultRateDelay = 100 * time.Millisecond // 10 req/sec, Scryfall's published limit
	defaultUserAgent = "deckforge/1.0"
	requestTimeout   = 30 * time.Second
	maxRetries       = 3
	initialBackoff   = 1 * time.Second
	maxBackoff       = 16 * time.Second

	// maxSearchPages bounds how many result pages one printing search follows.
	maxSearchPages = 5
)

// ClientConfig configures a Client. Zero values fall back to defaults.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	RateDelay time.Duration // minimum delay between requests
	Logger    *zap.Logger
}

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	userAgent   string
	logger      *zap.Logger
	backoff     time.Duration
}

// NewClient creates a client for the public Scryfall API.
func NewClient() *Client {
	return NewClientWithConfig(ClientConfig{})
}

// NewClientWithConfig creates a client with the given settings.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RateDelay <= 0 {
		cfg.RateDelay = defaultRateDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(cfg.RateDelay), 1),
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		logger:      cfg.Logger,
		backoff:     initialBackoff,
	}
}

// GetCard retrieves a printing by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}

	return &card, nil
}

// GetCardBySetNumber retrieves a printing by set code and collector number.
func (c *Client) GetCardBySetNumber(ctx context.Context, setCode, collectorNumber string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/%s/%s", c.baseURL, url.PathEscape(setCode), url.PathEscape(collectorNumber))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s#%s: %w", setCode, collectorNumber, err)
	}

	return &card, nil
}

// GetPrinting retrieves the printing p names, by Scryfall ID when it has
// one and by set code and collector number otherwise.
func (c *Client) GetPrinting(ctx context.Context, p deck.PrintingRef) (*Card, error) {
	switch {
	case p.ScryfallID != "":
		return c.GetCard(ctx, p.ScryfallID)
	case p.SetCode != "" && p.CollectorNumber != "":
		return c.GetCardBySetNumber(ctx, p.SetCode, p.CollectorNumber)
	default:
		return nil, fmt.Errorf("printing %q has no identifier", deck.PrintingKey(p))
	}
}

// SearchPrintings returns every paper printing of the card with the exact
// given name, newest first. A name with no printings yields an empty slice.
func (c *Client) SearchPrintings(ctx context.Context, name string) ([]Card, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("!%q game:paper", name))
	q.Set("unique", "prints")
	q.Set("order", "released")
	next := fmt.Sprintf("%s/cards/search?%s", c.baseURL, q.Encode())

	var printings []Card
	for page := 0; next != "" && page < maxSearchPages; page++ {
		var result SearchResult
		if err := c.doRequest(ctx, next, &result); err != nil {
			if IsNotFound(err) {
				// Scryfall answers 404 for searches with no matches.
				return []Card{}, nil
			}
			return nil, fmt.Errorf("failed to search printings of %q: %w", name, err)
		}

		printings = append(printings, result.Data...)
		next = ""
		if result.HasMore {
			next = result.NextPage
		}
	}

	c.logger.Debug("fetched printings", zap.String("name", name), zap.Int("count", len(printings)))
	return printings, nil
}

// doRequest performs a GET request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, u string, result interface{}) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}

			// Retry on network errors
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			if readErr != nil {
				return fmt.Errorf("failed to read response body: %w", readErr)
			}
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}
			return nil

		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			if attempt < maxRetries {
				wait := backoff
				if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
					wait = time.Duration(secs) * time.Second
				}
				c.logger.Warn("scryfall rate limited, backing off", zap.Duration("wait", wait))
				if err := sleep(ctx, wait); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr

		case http.StatusNotFound:
			return &NotFoundError{URL: u}

		default:
			var apiErr APIError
			if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
				return &apiErr
			}
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
