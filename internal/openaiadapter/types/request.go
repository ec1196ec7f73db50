package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CreateChatCompletionRequest is the body of POST /v1/chat/completions.
//
// Besides the OpenAI fields it accepts the SGLang sampling extensions top_k,
// stop_token_ids, no_stop_trim and skip_special_tokens.
type CreateChatCompletionRequest struct {
	Model               string                         `json:"model" validate:"required"`
	Messages            []ChatCompletionRequestMessage `json:"messages" validate:"required,min=1,dive"`
	Stream              *bool                          `json:"stream,omitempty"`
	StreamOptions       *ChatCompletionStreamOptions   `json:"stream_options,omitempty"`
	MaxTokens           *int                           `json:"max_tokens,omitempty" validate:"omitempty,min=1"`
	MaxCompletionTokens *int                           `json:"max_completion_tokens,omitempty" validate:"omitempty,min=1"`
	Temperature         *float64                       `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	TopP                *float64                       `json:"top_p,omitempty" validate:"omitempty,gt=0,max=1"`
	TopK                *int                           `json:"top_k,omitempty"`
	N                   *int                           `json:"n,omitempty" validate:"omitempty,min=1,max=16"`
	Stop                StopSequences                  `json:"stop,omitempty" validate:"max=16"`
	StopTokenIDs        []uint32                       `json:"stop_token_ids,omitempty"`
	NoStopTrim          bool                           `json:"no_stop_trim,omitempty"`
	SkipSpecialTokens   *bool                          `json:"skip_special_tokens,omitempty"`
	Tools               []ChatCompletionTool           `json:"tools,omitempty" validate:"dive"`
	ToolChoice          *ChatCompletionToolChoice      `json:"tool_choice,omitempty"`
	Seed                *int                           `json:"seed,omitempty"`
	PresencePenalty     *float64                       `json:"presence_penalty,omitempty" validate:"omitempty,min=-2,max=2"`
	FrequencyPenalty    *float64                       `json:"frequency_penalty,omitempty" validate:"omitempty,min=-2,max=2"`
	User                *string                        `json:"user,omitempty"`
}

// ChatCompletionStreamOptions configures streaming responses.
type ChatCompletionStreamOptions struct {
	IncludeUsage *bool `json:"include_usage,omitempty"`
}

// ChatCompletionRequestMessage is one message of the conversation history.
type ChatCompletionRequestMessage struct {
	Role       string                          `json:"role" validate:"required,oneof=system developer user assistant tool"`
	Content    MessageContent                  `json:"content"`
	Name       *string                         `json:"name,omitempty"`
	ToolCalls  []ChatCompletionMessageToolCall `json:"tool_calls,omitempty"`
	ToolCallID *string                         `json:"tool_call_id,omitempty"`
}

// MessageContent holds message text. It accepts either a plain string or an
// array of content parts; only text parts are supported.
type MessageContent struct {
	Text string
	Set  bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = MessageContent{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = MessageContent{Text: s, Set: true}
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of content parts: %w", err)
	}

	var b strings.Builder
	for i, part := range parts {
		switch part.Type {
		case "text":
			b.WriteString(part.Text)
		default:
			return fmt.Errorf("unsupported content part type %q at index %d", part.Type, i)
		}
	}
	*c = MessageContent{Text: b.String(), Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Text)
}

// StopSequences accepts the "stop" field as a single string or an array of strings.
type StopSequences []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*s = StopSequences{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings: %w", err)
	}
	*s = many
	return nil
}

// ChatCompletionTool declares a function the model may call.
type ChatCompletionTool struct {
	Type     string             `json:"type" validate:"eq=function"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function.
type FunctionDefinition struct {
	Name        string         `json:"name" validate:"required,max=64"`
	Description *string        `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      *bool          `json:"strict,omitempty"`
}

// Tool choice modes.
const (
	ToolChoiceNone     = "none"
	ToolChoiceAuto     = "auto"
	ToolChoiceRequired = "required"
)

// ChatCompletionToolChoice is either a mode string ("none", "auto", "required")
// or a named function object.
type ChatCompletionToolChoice struct {
	Mode     string
	Function string
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *ChatCompletionToolChoice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var mode string
		if err := json.Unmarshal(data, &mode); err != nil {
			return err
		}
		switch mode {
		case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		default:
			return fmt.Errorf("unsupported tool_choice %q", mode)
		}
		*t = ChatCompletionToolChoice{Mode: mode}
		return nil
	}

	var named struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("tool_choice must be a string or an object: %w", err)
	}
	if named.Type != "function" || named.Function.Name == "" {
		return fmt.Errorf("tool_choice object must name a function")
	}
	*t = ChatCompletionToolChoice{Function: named.Function.Name}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t ChatCompletionToolChoice) MarshalJSON() ([]byte, error) {
	if t.Function != "" {
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": t.Function},
		})
	}
	return json.Marshal(t.Mode)
}

// IsNone reports whether tool calling was explicitly disabled.
func (t *ChatCompletionToolChoice) IsNone() bool {
	return t != nil && t.Function == "" && t.Mode == ToolChoiceNone
}

// ChatCompletionMessageToolCall is a complete tool call inside a message.
type ChatCompletionMessageToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is the function name and JSON-encoded arguments of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
