package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/mlb"
)

// Cursor walks the upstream timestamp list for one game. It caches the list
// of not-yet-consumed timestamps and refetches when the cache is empty or
// exhausted. The cursor never hands out a timestamp at or before the last
// consumed one; last-consumed itself is owned by the aggregator and passed in
// on each call.
type Cursor struct {
	gameID string
	client mlb.Client
	logger *zap.Logger

	cache []string
	index int // -1 when the cache is empty
}

func NewCursor(gameID string, client mlb.Client, logger *zap.Logger) *Cursor {
	return &Cursor{
		gameID: gameID,
		client: client,
		logger: logger,
		index:  -1,
	}
}

// Next returns the next timestamp to fetch a snapshot for. The second return
// is false when upstream reports nothing new.
func (c *Cursor) Next(ctx context.Context, lastConsumed string) (string, bool, error) {
	if len(c.cache) == 0 || c.index >= len(c.cache)-1 {
		timestamps, err := c.client.ListTimestamps(ctx, c.gameID)
		if err != nil {
			return "", false, err
		}

		fresh := unconsumedSuffix(timestamps, lastConsumed)
		if len(fresh) == 0 {
			c.logger.Debug("no new timestamps available", zap.String("gameID", c.gameID))
			c.cache = nil
			c.index = -1
			return "", false, nil
		}

		c.cache = fresh
		c.index = 0
		return c.cache[0], true, nil
	}

	c.index++
	c.logger.Debug("using cached timestamp",
		zap.String("gameID", c.gameID),
		zap.Int("index", c.index),
	)
	return c.cache[c.index], true, nil
}

// Reset drops the cached timestamp list.
func (c *Cursor) Reset() {
	c.cache = nil
	c.index = -1
}

func (c *Cursor) empty() bool {
	return len(c.cache) == 0 && c.index == -1
}

// unconsumedSuffix filters a fetched timestamp list down to entries strictly
// after lastConsumed. When lastConsumed is absent from the list everything is
// treated as new.
func unconsumedSuffix(timestamps []string, lastConsumed string) []string {
	if lastConsumed == "" {
		return timestamps
	}
	for i, ts := range timestamps {
		if ts == lastConsumed {
			return timestamps[i+1:]
		}
	}
	return timestamps
}
