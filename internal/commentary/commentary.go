// Package commentary turns raw game context into natural-language
// play-by-play text through an OpenAI-compatible chat-completions API.
package commentary

import "context"

// Commentator is the enrichment capability: one call per delivered event.
// Implementations must be safe for concurrent use across feed and replay
// flows.
type Commentator interface {
	Generate(ctx context.Context, conversationID string, contextJSON []byte) (string, error)
}
