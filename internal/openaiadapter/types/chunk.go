package types

// CreateChatCompletionStreamResponse is one chat.completion.chunk object of a
// streamed response.
type CreateChatCompletionStreamResponse struct {
	ID                string                       `json:"id"`
	Object            string                       `json:"object"`
	Created           int64                        `json:"created"`
	Model             string                       `json:"model"`
	SystemFingerprint *string                      `json:"system_fingerprint,omitempty"`
	Choices           []ChatCompletionStreamChoice `json:"choices"`
	Usage             *CompletionUsage             `json:"usage,omitempty"`
}

// ChatCompletionStreamChoice carries the delta for one choice index.
// FinishReason serializes as null until the choice completes.
type ChatCompletionStreamChoice struct {
	Index        int                       `json:"index"`
	Delta        ChatCompletionStreamDelta `json:"delta"`
	Logprobs     *struct{}                 `json:"logprobs"`
	FinishReason *string                   `json:"finish_reason"`
	MatchedStop  any                       `json:"matched_stop,omitempty"`
}

// ChatCompletionStreamDelta is the field-level update of a streamed choice.
type ChatCompletionStreamDelta struct {
	Role             *string                              `json:"role,omitempty"`
	Content          *string                              `json:"content,omitempty"`
	ReasoningContent *string                              `json:"reasoning_content,omitempty"`
	ToolCalls        []ChatCompletionMessageToolCallChunk `json:"tool_calls,omitempty"`
}

// ChatCompletionMessageToolCallChunk is a tool call fragment inside a delta.
// Index is the position of the call within its choice.
type ChatCompletionMessageToolCallChunk struct {
	Index    int                `json:"index"`
	ID       *string            `json:"id,omitempty"`
	Type     *string            `json:"type,omitempty"`
	Function *FunctionCallChunk `json:"function,omitempty"`
}

// FunctionCallChunk is the function part of a tool call fragment.
type FunctionCallChunk struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}
