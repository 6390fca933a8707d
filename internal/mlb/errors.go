package mlb

import "errors"

var (
	ErrNotFound    = errors.New("game data not found")
	ErrRateLimited = errors.New("rate limited by stats API")
)
