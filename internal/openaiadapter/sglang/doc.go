// Package sglang adapts OpenAI chat completion requests to an SGLang engine,
// letting OpenAI SDK clients talk to self-hosted models without code changes.
//
// The adapter handles:
//
//   - Prompt rendering: Messages are rendered with a ChatML template and
//     tokenized on the gateway. Declared tools are described in the system
//     prompt.
//
//   - Streaming conversion: The engine streams token ids per output index.
//     ResponseConverter decodes them incrementally, applies stop sequences,
//     extracts tool calls and produces chat.completion.chunk objects with
//     role, content, finish reason and usage.
//
//   - Aggregation: Non-streaming requests run the same stream and fold the
//     chunks into a single chat.completion response.
//
// # Adapters
//
// CreateChatCompletionAdapter: OpenAI CreateChatCompletion → SGLang /generate
package sglang
