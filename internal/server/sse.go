package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseStream writes server-sent events to one client connection. Send is safe
// for concurrent use; the underlying ResponseWriter is not, so all writes
// funnel through the mutex.
type sseStream struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

// newSSEStream prepares an SSE response. Returns false when the connection
// cannot stream.
func newSSEStream(w http.ResponseWriter) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &sseStream{writer: w, flusher: flusher}, true
}

// Send writes one named event with a JSON payload.
func (s *sseStream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.writer, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
