package types

// Finish reasons reported on choices.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonAbort         = "abort"
)

// CreateChatCompletionResponse is the non-streaming chat completion response.
type CreateChatCompletionResponse struct {
	ID                string                 `json:"id"`
	Object            string                 `json:"object"`
	Created           int64                  `json:"created"`
	Model             string                 `json:"model"`
	SystemFingerprint *string                `json:"system_fingerprint,omitempty"`
	Choices           []ChatCompletionChoice `json:"choices"`
	Usage             *CompletionUsage       `json:"usage,omitempty"`
}

// ChatCompletionChoice is one choice of a non-streaming response.
type ChatCompletionChoice struct {
	Index        int                           `json:"index"`
	Message      ChatCompletionResponseMessage `json:"message"`
	Logprobs     *struct{}                     `json:"logprobs"`
	FinishReason string                        `json:"finish_reason"`
	MatchedStop  any                           `json:"matched_stop,omitempty"`
}

// ChatCompletionResponseMessage is the assistant message of a non-streaming choice.
// Content is null when the model only produced tool calls.
type ChatCompletionResponseMessage struct {
	Role             string                          `json:"role"`
	Content          *string                         `json:"content"`
	ReasoningContent *string                         `json:"reasoning_content,omitempty"`
	ToolCalls        []ChatCompletionMessageToolCall `json:"tool_calls,omitempty"`
}

// CompletionUsage reports token accounting for a request.
type CompletionUsage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// CompletionTokensDetails breaks down completion tokens.
type CompletionTokensDetails struct {
	ReasoningTokens *int `json:"reasoning_tokens,omitempty"`
}

// Model is an entry of GET /v1/models.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ListModelsResponse is the body of GET /v1/models.
type ListModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
