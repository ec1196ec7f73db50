package sglang

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/toolparser"
)

// Generator starts a token-level generation on the engine.
type Generator interface {
	Generate(ctx context.Context, req *engine.GenerateRequest) (iter.Seq2[engine.Event, error], error)
}

// CreateChatCompletionAdapter serves OpenAI chat completions from an SGLang engine.
// It is stateless between requests and safe for concurrent use.
type CreateChatCompletionAdapter struct {
	generator         Generator
	tokenizer         tokenizer.Tokenizer
	renderer          PromptRenderer
	parserFactory     toolparser.Factory
	systemFingerprint string
	validate          *validator.Validate
	now               func() time.Time
}

// Compile-time check to ensure CreateChatCompletionAdapter implements the adapter contract
var _ openaiadapter.CreateChatCompletionAdapter = (*CreateChatCompletionAdapter)(nil)

// Option configures a CreateChatCompletionAdapter.
type Option func(*CreateChatCompletionAdapter)

// WithPromptRenderer replaces the default ChatML renderer.
func WithPromptRenderer(r PromptRenderer) Option {
	return func(a *CreateChatCompletionAdapter) {
		a.renderer = r
	}
}

// WithToolParser enables tool call extraction with the given parser factory.
func WithToolParser(f toolparser.Factory) Option {
	return func(a *CreateChatCompletionAdapter) {
		a.parserFactory = f
	}
}

// WithSystemFingerprint sets the system_fingerprint reported on every chunk.
func WithSystemFingerprint(fp string) Option {
	return func(a *CreateChatCompletionAdapter) {
		a.systemFingerprint = fp
	}
}

// WithClock overrides the clock used for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *CreateChatCompletionAdapter) {
		a.now = now
	}
}

// NewCreateChatCompletionAdapter creates an adapter that generates with g and
// tokenizes with tok.
func NewCreateChatCompletionAdapter(g Generator, tok tokenizer.Tokenizer, opts ...Option) *CreateChatCompletionAdapter {
	a := &CreateChatCompletionAdapter{
		generator: g,
		tokenizer: tok,
		renderer:  ChatMLRenderer{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessStreamingRequest implements openaiadapter.Adapter.
//
// Every choice's final chunk carries that choice's usage. With
// stream_options.include_usage a last chunk with no choices reports the usage
// of the whole request.
func (a *CreateChatCompletionAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
) (iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error], error) {
	prep, err := a.prepare(&clientReq)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	events, err := a.generator.Generate(ctx, prep.generate)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	slog.DebugContext(ctx, "generation started",
		"request_id", prep.converter.RequestID,
		"prompt_tokens", prep.promptTokens,
		"n", prep.generate.SamplingParams.N,
	)

	converter := NewResponseConverter(prep.converter)
	converter.SetInitialPromptTokens(int32(prep.promptTokens))

	return func(yield func(*openaiadapter.CreateChatCompletionChunk, error) bool) {
		var usage usageTotals
		var last *openaiadapter.CreateChatCompletionChunk

		for ev, err := range events {
			if err != nil {
				yield(nil, toChatCompletionError(err))
				return
			}

			chunk, err := converter.Convert(ev)
			if err != nil {
				yield(nil, toChatCompletionError(err))
				return
			}
			if chunk == nil {
				continue
			}

			usage.add(chunk.Usage)
			last = chunk
			if !yield(chunk, nil) {
				return
			}
		}

		if prep.includeUsage && last != nil && usage.seen {
			yield(&openaiadapter.CreateChatCompletionChunk{
				ID:                last.ID,
				Object:            chunkObject,
				Created:           last.Created,
				Model:             last.Model,
				SystemFingerprint: last.SystemFingerprint,
				Choices:           []types.ChatCompletionStreamChoice{},
				Usage:             usage.total(),
			}, nil)
		}
	}, nil
}

// ProcessRequest implements openaiadapter.Adapter by running the streaming
// path and folding its chunks into one response.
func (a *CreateChatCompletionAdapter) ProcessRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
) (*openaiadapter.CreateChatCompletionResponse, error) {
	clientReq.StreamOptions = nil

	stream, err := a.ProcessStreamingRequest(ctx, clientReq)
	if err != nil {
		return nil, err
	}

	agg := newAggregator()
	for chunk, err := range stream {
		if err != nil {
			return nil, err
		}
		agg.add(chunk)
	}
	return agg.response(), nil
}
