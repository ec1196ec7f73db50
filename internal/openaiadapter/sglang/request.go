package sglang

import (
	"strings"

	"github.com/google/uuid"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
	"github.com/BenYao21/sglang/internal/tokenizer"
)

// preparedRequest is everything needed to run one chat completion.
type preparedRequest struct {
	generate     *engine.GenerateRequest
	converter    ConverterConfig
	promptTokens int
	includeUsage bool
}

// prepare validates and tokenizes a chat request. All failures here are
// request errors and happen before the engine is contacted.
func (a *CreateChatCompletionAdapter) prepare(req *types.CreateChatCompletionRequest) (*preparedRequest, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, invalidRequest("invalid request: %v", err)
	}

	prompt, err := a.renderer.Render(req)
	if err != nil {
		return nil, err
	}

	inputIDs, err := a.tokenizer.Encode(prompt)
	if err != nil {
		return nil, invalidRequest("failed to tokenize prompt: %v", err)
	}

	toolsActive := a.parserFactory != nil && len(req.Tools) > 0 && !req.ToolChoice.IsNone()

	// Tool call markers may be special tokens, so they must survive decoding.
	skipSpecial := true
	if req.SkipSpecialTokens != nil {
		skipSpecial = *req.SkipSpecialTokens
	}
	if toolsActive {
		skipSpecial = false
	}

	maxTokens := req.MaxCompletionTokens
	if maxTokens == nil {
		maxTokens = req.MaxTokens
	}

	n := 1
	if req.N != nil {
		n = *req.N
	}

	requestID := newResponseID()
	stop := []string(req.Stop)

	generate := &engine.GenerateRequest{
		RID:      requestID,
		InputIDs: inputIDs,
		SamplingParams: engine.SamplingParams{
			MaxNewTokens:      maxTokens,
			Temperature:       req.Temperature,
			TopP:              req.TopP,
			TopK:              req.TopK,
			N:                 n,
			Stop:              stop,
			StopTokenIDs:      req.StopTokenIDs,
			SkipSpecialTokens: skipSpecial,
			NoStopTrim:        req.NoStopTrim,
			FrequencyPenalty:  req.FrequencyPenalty,
			PresencePenalty:   req.PresencePenalty,
			Seed:              req.Seed,
		},
		Stream: true,
	}

	converter := ConverterConfig{
		Tokenizer:         a.tokenizer,
		Stop:              tokenizer.NewStopConfig(stop, req.StopTokenIDs, req.NoStopTrim),
		RequestID:         requestID,
		Created:           a.now().Unix(),
		Model:             req.Model,
		SystemFingerprint: a.systemFingerprint,
		Tools:             req.Tools,
		ToolChoice:        req.ToolChoice,
		HistoryToolCalls:  countToolCalls(req.Messages),
		SkipSpecialTokens: skipSpecial,
	}
	if toolsActive {
		converter.ParserFactory = a.parserFactory
	}

	includeUsage := req.StreamOptions != nil && req.StreamOptions.IncludeUsage != nil && *req.StreamOptions.IncludeUsage

	return &preparedRequest{
		generate:     generate,
		converter:    converter,
		promptTokens: len(inputIDs),
		includeUsage: includeUsage,
	}, nil
}

// newResponseID generates an OpenAI-compatible response ID (chatcmpl-<hex>).
// The same id is sent to the engine as request id so logs correlate.
func newResponseID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
