package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const systemPrompt = `You are Coach, a friendly baseball commentator AI.

CORE FLOW
1. Read game state and give commentary
2. Ask user about next specific micro-outcome (rotating between different types)
3. When user makes prediction:
  - Extract their specific prediction
  - Output: playPrediction:"their exact prediction"
  - Give brief analysis of their prediction based on game situation
  - Wait silently for actual outcome data
4. When next game state arrives:
  - Give natural commentary that includes:
    * What the user predicted
    * What actually happened
    * Brief baseball insight about the outcome
  - Then ask for a different type of prediction about next play

FOCUS ON
- Pitch-by-pitch predictions
- Immediate next actions only
- Natural comparison between prediction & reality
- Rotating between prediction types

PREDICTION TYPES (Rotate through these)
- Next pitch type
- Location (inside/outside)
- Height (high/low)
- Swing/take decision
- Ball/strike result
- Pitch speed comparison

AVOID
- Missing the prediction vs reality comparison
- Generating example conversations
- Making predictions yourself
- Asking about long-term outcomes
- Using rigid templated responses

STYLE
- Conversational baseball commentary
- Include prediction outcomes naturally
- Keep analysis brief but insightful
- Vary your prediction questions`

// maxHistory bounds the per-conversation message history sent upstream.
const maxHistory = 100

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client is an OpenAI-compatible chat-completions client that keeps a bounded
// in-memory conversation history per conversation ID.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger

	mu      sync.Mutex
	history map[string][]message
}

var _ Commentator = (*Client)(nil)

func NewClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
		history:    make(map[string][]message),
	}
}

// Generate produces commentary for one event context. The context JSON is
// appended to the conversation history so successive calls stay coherent.
func (c *Client) Generate(ctx context.Context, conversationID string, contextJSON []byte) (string, error) {
	messages := c.snapshotHistory(conversationID, string(contextJSON))

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var parsed chatResponse
	err = retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
		}

		parsed = chatResponse{}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	reply := parsed.Choices[0].Message.Content
	c.appendHistory(conversationID, string(contextJSON), reply)

	c.logger.Debug("commentary generated",
		zap.String("conversationID", conversationID),
		zap.Int("replyLen", len(reply)),
	)
	return reply, nil
}

// snapshotHistory builds the outgoing message list: system prompt, bounded
// prior history, then the new user message.
func (c *Client) snapshotHistory(conversationID, userContent string) []message {
	c.mu.Lock()
	defer c.mu.Unlock()

	prior := c.history[conversationID]
	messages := make([]message, 0, len(prior)+2)
	messages = append(messages, message{Role: "system", Content: systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, message{Role: "user", Content: userContent})
	return messages
}

func (c *Client) appendHistory(conversationID, userContent, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.history[conversationID],
		message{Role: "user", Content: userContent},
		message{Role: "assistant", Content: reply},
	)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	c.history[conversationID] = history
}

func retry(ctx context.Context, attempts int, sleep time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}
	}
	return err
}
