package sglang

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/toolparser"
)

const (
	chunkObject   = "chat.completion.chunk"
	assistantRole = "assistant"
	functionType  = "function"
)

// ConverterConfig is the per-request context of a ResponseConverter.
type ConverterConfig struct {
	Tokenizer tokenizer.Tokenizer
	// ParserFactory creates the tool parser of each index. Tool calls are only
	// parsed when it is set, tools are declared and tool_choice is not "none".
	ParserFactory toolparser.Factory
	Stop          tokenizer.StopConfig

	RequestID         string
	Created           int64
	Model             string
	SystemFingerprint string

	Tools      []types.ChatCompletionTool
	ToolChoice *types.ChatCompletionToolChoice
	// HistoryToolCalls counts the tool calls already present in the
	// conversation; it offsets positional tool call ids.
	HistoryToolCalls int

	SkipSpecialTokens bool
}

// ResponseConverter turns engine generation events into chat.completion.chunk
// objects. It keeps one state per output index, created on the first event
// for that index and dropped on its Complete.
//
// A ResponseConverter serves a single request and is not safe for concurrent use.
type ResponseConverter struct {
	tokenizer         tokenizer.Tokenizer
	parserFactory     toolparser.Factory
	stopConfig        tokenizer.StopConfig
	requestID         string
	created           int64
	model             string
	systemFingerprint *string
	tools             []types.ChatCompletionTool
	toolChoice        *types.ChatCompletionToolChoice
	historyToolCalls  int
	skipSpecialTokens bool

	initialPromptTokens *int32
	states              map[uint32]*indexState
}

// NewResponseConverter creates a converter for one request.
func NewResponseConverter(cfg ConverterConfig) *ResponseConverter {
	c := &ResponseConverter{
		tokenizer:         cfg.Tokenizer,
		parserFactory:     cfg.ParserFactory,
		stopConfig:        cfg.Stop,
		requestID:         cfg.RequestID,
		created:           cfg.Created,
		model:             cfg.Model,
		tools:             cfg.Tools,
		toolChoice:        cfg.ToolChoice,
		historyToolCalls:  cfg.HistoryToolCalls,
		skipSpecialTokens: cfg.SkipSpecialTokens,
		states:            make(map[uint32]*indexState),
	}
	if cfg.SystemFingerprint != "" {
		fp := cfg.SystemFingerprint
		c.systemFingerprint = &fp
	}
	return c
}

// SetInitialPromptTokens records the prompt length counted before generation.
// Only the first call has an effect.
func (c *ResponseConverter) SetInitialPromptTokens(n int32) {
	if c.initialPromptTokens == nil {
		c.initialPromptTokens = &n
	}
}

func (c *ResponseConverter) toolsEnabled() bool {
	return c.parserFactory != nil && len(c.tools) > 0 && !c.toolChoice.IsNone()
}

// Convert processes one event and returns the chunk to emit, or nil when the
// event produces no output. An engine Error drops all index states and is
// returned as *EngineError.
func (c *ResponseConverter) Convert(ev engine.Event) (*types.CreateChatCompletionStreamResponse, error) {
	switch e := ev.(type) {
	case nil:
		return nil, nil
	case *engine.Chunk:
		if e == nil {
			return nil, nil
		}
		return c.convertChunk(e), nil
	case *engine.Complete:
		if e == nil {
			return nil, nil
		}
		return c.convertComplete(e), nil
	case *engine.Error:
		if e == nil {
			return nil, nil
		}
		clear(c.states)
		return nil, &EngineError{Message: e.Message, StatusCode: e.StatusCode}
	default:
		return nil, fmt.Errorf("unsupported generation event %T", ev)
	}
}

func (c *ResponseConverter) convertChunk(ev *engine.Chunk) *types.CreateChatCompletionStreamResponse {
	st := c.state(ev.Index)
	st.trackTokens(ev.PromptTokens, ev.CompletionTokens, c.initialPromptTokens)

	st.buffer += c.decode(st, ev.TokenIDs)
	delta := c.drain(st, ev.Index, false)

	if st.isFirstChunk {
		st.isFirstChunk = false
		delta.Role = ptr(assistantRole)
	} else if delta.Content == nil && len(delta.ToolCalls) == 0 {
		return nil
	}

	return c.chunk(types.ChatCompletionStreamChoice{
		Index: int(ev.Index),
		Delta: delta,
	}, nil)
}

func (c *ResponseConverter) convertComplete(ev *engine.Complete) *types.CreateChatCompletionStreamResponse {
	st := c.state(ev.Index)
	defer delete(c.states, ev.Index)

	// Nothing was streamed for this index: the output only arrives here.
	if st.tokensSeen == 0 && len(ev.OutputIDs) > 0 {
		st.buffer += c.decode(st, ev.OutputIDs)
	}
	st.buffer += c.flush(st, ev.Index)

	delta := c.drain(st, ev.Index, true)
	if st.isFirstChunk {
		delta.Role = ptr(assistantRole)
	}

	finishReason := ev.FinishReason
	if finishReason == "" {
		finishReason = types.FinishReasonStop
	}
	matched := ev.MatchedStop
	if st.matchedStop != nil {
		finishReason = types.FinishReasonStop
		matched = st.matchedStop
	}
	if st.hasToolCalls && finishReason == types.FinishReasonStop {
		finishReason = types.FinishReasonToolCalls
	}

	return c.chunk(types.ChatCompletionStreamChoice{
		Index:        int(ev.Index),
		Delta:        delta,
		FinishReason: &finishReason,
		MatchedStop:  matched,
	}, c.finalUsage(st, ev))
}

// decode runs ids through the index's decoder. Once a stop condition is hit
// the remaining ids are dropped. Decode errors are expected while a token
// sequence is incomplete and are not surfaced.
func (c *ResponseConverter) decode(st *indexState, ids []uint32) string {
	var b strings.Builder
	for _, id := range ids {
		if st.stopped {
			break
		}
		st.tokensSeen++

		if st.stop != nil {
			out, err := st.stop.ProcessToken(id)
			if err != nil {
				slog.Debug("token decode failed", "request_id", c.requestID, "token_id", id, "error", err)
				continue
			}
			b.WriteString(out.Text)
			if out.Terminal() {
				st.stopped = true
				st.matchedStop = st.stop.Matched()
			}
			continue
		}

		text, ok, err := st.decoder.Step(id)
		if err != nil {
			slog.Debug("token decode failed", "request_id", c.requestID, "token_id", id, "error", err)
			continue
		}
		if ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

// flush releases whatever the index's decoder still holds.
func (c *ResponseConverter) flush(st *indexState, index uint32) string {
	if st.stopped {
		return ""
	}

	if st.stop != nil {
		out, err := st.stop.Flush()
		if err != nil {
			slog.Debug("decoder flush failed", "request_id", c.requestID, "index", index, "error", err)
			return ""
		}
		if out.Terminal() {
			st.stopped = true
			st.matchedStop = st.stop.Matched()
		}
		return out.Text
	}

	text, ok, err := st.decoder.Flush()
	if err != nil {
		slog.Debug("decoder flush failed", "request_id", c.requestID, "index", index, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return text
}

// drain moves the buffer into a delta. With an active tool parser the text
// is split into content and tool calls; text the parser holds back stays
// with the parser until the next call or the final flush.
func (c *ResponseConverter) drain(st *indexState, index uint32, final bool) types.ChatCompletionStreamDelta {
	var delta types.ChatCompletionStreamDelta

	if st.parser == nil {
		if st.buffer != "" {
			delta.Content = ptr(st.buffer)
			st.buffer = ""
		}
		return delta
	}

	var res toolparser.Result
	if st.buffer != "" {
		res = st.parser.ParseIncremental(st.buffer)
		st.buffer = ""
	}
	if final {
		flushed := st.parser.Flush()
		res.NormalText += flushed.NormalText
		res.Calls = append(res.Calls, flushed.Calls...)
	}

	if res.NormalText != "" {
		delta.Content = ptr(res.NormalText)
	}
	for _, call := range res.Calls {
		// Ids are numbered by position within the choice.
		id := toolparser.GenerateToolCallID(c.model, call.Name, call.ToolIndex, c.historyToolCalls)
		delta.ToolCalls = append(delta.ToolCalls, types.ChatCompletionMessageToolCallChunk{
			Index: call.ToolIndex,
			ID:    ptr(id),
			Type:  ptr(functionType),
			Function: &types.FunctionCallChunk{
				Name:      ptr(call.Name),
				Arguments: ptr(call.Arguments),
			},
		})
		st.hasToolCalls = true
		slog.Debug("tool call parsed", "request_id", c.requestID, "index", index, "tool", call.Name, "tool_call_id", id)
	}
	return delta
}

func (c *ResponseConverter) chunk(choice types.ChatCompletionStreamChoice, usage *types.CompletionUsage) *types.CreateChatCompletionStreamResponse {
	return &types.CreateChatCompletionStreamResponse{
		ID:                c.requestID,
		Object:            chunkObject,
		Created:           c.created,
		Model:             c.model,
		SystemFingerprint: c.systemFingerprint,
		Choices:           []types.ChatCompletionStreamChoice{choice},
		Usage:             usage,
	}
}

func ptr[T any](v T) *T {
	return &v
}
