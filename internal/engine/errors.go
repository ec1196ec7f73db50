package engine

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// StatusError is returned when the engine answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine returned status %d: %s", e.StatusCode, e.Message)
}

// errorMessage extracts a human-readable message from an engine error body.
// The engine reports errors either as {"error": {"message": ...}},
// {"error": "..."} or {"message": ...}; anything else is returned verbatim.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	parsed := gjson.ParseBytes(body)
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if v := parsed.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return string(body)
}
