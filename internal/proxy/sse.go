package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSEWriter writes Server-Sent Events and flushes after every event.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewSSEWriter wraps w. It fails when the response cannot be flushed
// incrementally.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// start sends the event-stream headers once, before the first event.
func (s *SSEWriter) start() {
	if s.started {
		return
	}
	s.started = true

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// WriteEvent writes an "event:" line. The event is completed by the next
// WriteData or WriteRaw call.
func (s *SSEWriter) WriteEvent(name string) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// WriteData JSON-encodes v as a "data:" line and flushes.
func (s *SSEWriter) WriteData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	return s.WriteRaw(string(data))
}

// WriteRaw writes data verbatim as a "data:" line and flushes.
func (s *SSEWriter) WriteRaw(data string) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}
	s.flusher.Flush()
	return nil
}
