// Package toolparser extracts structured tool calls from streamed model text.
//
// Models announce tool calls with textual markers in their output. A Parser is
// fed the decoded text of one output sequence as it streams and separates it
// into plain text and completed calls. Parsers are stateful and owned by a
// single sequence.
package toolparser

import (
	"bytes"
	"encoding/json"
)

// Parser splits streamed model output into plain text and tool calls.
type Parser interface {
	// ParseIncremental consumes the next piece of text. Text that may still
	// turn into a tool call is held back until it can be classified.
	ParseIncremental(text string) Result

	// Flush releases whatever is held at the end of the sequence.
	Flush() Result
}

// Result is the output of one parser step.
type Result struct {
	NormalText string
	Calls      []ToolCallItem
}

// ToolCallItem is one completed tool call.
type ToolCallItem struct {
	// ToolIndex numbers the calls of one sequence from zero.
	ToolIndex int
	Name      string
	// Arguments is a JSON object encoded as a string.
	Arguments string
}

// compactArguments normalizes a raw JSON arguments value. Non-JSON input is
// returned unchanged.
func compactArguments(raw string) string {
	if raw == "" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}

// partialPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of marker.
func partialPrefixLen(s, marker string) int {
	for n := min(len(s), len(marker)-1); n > 0; n-- {
		if s[len(s)-n:] == marker[:n] {
			return n
		}
	}
	return 0
}
