package mlb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client interface for testability.
type Client interface {
	ListTimestamps(ctx context.Context, gameID string) ([]string, error)
	GetFeed(ctx context.Context, gameID string) (*GameFeed, error)
	GetFeedAt(ctx context.Context, gameID, timestamp string) (*GameFeed, error)
	GetSchedule(ctx context.Context, startDate, endDate string) (*Schedule, error)
}

// HTTPClient talks to the MLB stats API. The poll loop depends on the rate
// limiter here to stay inside the upstream's request budget.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string // v1.1 game feed base
	scheduleURL string // v1 schedule base
	season      int
	limiter     *rate.Limiter
	retryCount  int
	retryDelay  time.Duration
	logger      *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewClient(baseURL, scheduleURL string, season, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:     baseURL,
		scheduleURL: scheduleURL,
		season:      season,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount:  retryCount,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// ListTimestamps returns the ordered timecodes for which feed snapshots exist.
func (c *HTTPClient) ListTimestamps(ctx context.Context, gameID string) ([]string, error) {
	u := fmt.Sprintf("%s/game/%s/feed/live/timestamps", c.baseURL, gameID)

	var timestamps []string
	if err := c.getJSON(ctx, u, &timestamps); err != nil {
		return nil, fmt.Errorf("listing timestamps: %w", err)
	}
	return timestamps, nil
}

// GetFeed fetches the current full game-feed document.
func (c *HTTPClient) GetFeed(ctx context.Context, gameID string) (*GameFeed, error) {
	u := fmt.Sprintf("%s/game/%s/feed/live", c.baseURL, gameID)

	var feed GameFeed
	if err := c.getJSON(ctx, u, &feed); err != nil {
		return nil, fmt.Errorf("fetching live feed: %w", err)
	}
	return &feed, nil
}

// GetFeedAt fetches the game-feed snapshot as of the given timecode.
func (c *HTTPClient) GetFeedAt(ctx context.Context, gameID, timestamp string) (*GameFeed, error) {
	u := fmt.Sprintf("%s/game/%s/feed/live?timecode=%s", c.baseURL, gameID, url.QueryEscape(timestamp))

	var feed GameFeed
	if err := c.getJSON(ctx, u, &feed); err != nil {
		return nil, fmt.Errorf("fetching feed snapshot at %s: %w", timestamp, err)
	}
	return &feed, nil
}

// GetSchedule fetches the schedule for a date range.
func (c *HTTPClient) GetSchedule(ctx context.Context, startDate, endDate string) (*Schedule, error) {
	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("season", fmt.Sprintf("%d", c.season))
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)
	u := fmt.Sprintf("%s/schedule?%s", c.scheduleURL, q.Encode())

	var sched Schedule
	if err := c.getJSON(ctx, u, &sched); err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}
	return &sched, nil
}

// getJSON performs a rate-limited GET with retries and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	c.logger.Debug("requesting", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		// Every attempt counts against the upstream rate limit, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ballpark-live-feed")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
