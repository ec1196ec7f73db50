package toolparser

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateToolCallID returns the id of a tool call.
//
// Kimi models replay calls by position, so their ids encode the call's
// ordinal across the conversation: "functions.NAME:N" where N is the number
// of calls already in the history plus the call's index within the current
// choice. Every other model gets an opaque "call_" id with 24 hex characters.
func GenerateToolCallID(model, functionName string, index, historyToolCallsCount int) string {
	if strings.Contains(strings.ToLower(model), "kimi") {
		return fmt.Sprintf("functions.%s:%d", functionName, historyToolCallsCount+index)
	}
	simple := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "call_" + simple[:24]
}
