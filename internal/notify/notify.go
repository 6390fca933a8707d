package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier is the interface for operational push notifications.
type Notifier interface {
	ReplayCompleted(ctx context.Context, userID, gameID string, plays int, duration time.Duration) error
	StreamFailed(ctx context.Context, gameID string, cause error) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewClient creates a new ntfy client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// ReplayCompleted sends a notification when a replay stream finishes.
func (c *Client) ReplayCompleted(ctx context.Context, userID, gameID string, plays int, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Replay Complete: game %s", gameID)
	message := FormatReplayMessage(userID, plays, duration)
	tags := c.config.Tags + ",white_check_mark"

	return c.send(ctx, title, message, tags, c.config.Priority)
}

// StreamFailed sends a notification when the live feed errors out.
func (c *Client) StreamFailed(ctx context.Context, gameID string, cause error) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Live Feed Failed: game %s", gameID)
	message := FormatFailureMessage(cause)
	tags := c.config.Tags + ",x"
	priority := "high" // Override to high priority for failures

	return c.send(ctx, title, message, tags, priority)
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

// ReplayCompleted is a no-op.
func (n *NoopNotifier) ReplayCompleted(_ context.Context, _, _ string, _ int, _ time.Duration) error {
	return nil
}

// StreamFailed is a no-op.
func (n *NoopNotifier) StreamFailed(_ context.Context, _ string, _ error) error {
	return nil
}

// New creates the appropriate notifier based on config. An enabled but
// invalid config falls back to the no-op notifier rather than sending
// malformed requests.
func New(cfg *Config, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("notifications disabled", zap.Error(err))
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
