package sglang

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/toolparser"
)

// fakeTokenizer maps ids to fixed pieces. Encode yields one id per
// whitespace-separated word so prompt sizes are easy to predict.
type fakeTokenizer map[uint32]string

const eosID uint32 = 99

func (f fakeTokenizer) Encode(text string) ([]uint32, error) {
	return make([]uint32, len(strings.Fields(text))), nil
}

func (f fakeTokenizer) Decode(ids []uint32, skipSpecialTokens bool) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		if id == eosID && skipSpecialTokens {
			continue
		}
		piece, ok := f[id]
		if !ok {
			return "", fmt.Errorf("invalid token: %d", id)
		}
		b.WriteString(piece)
	}
	return b.String(), nil
}

var testTokenizer = fakeTokenizer{
	1:     "Hel",
	2:     "lo",
	3:     " world",
	4:     "go",
	5:     " ",
	6:     "EN",
	7:     "D",
	8:     " now",
	10:    "\xc3",
	11:    "\xa9",
	12:    "caf",
	20:    "<tool_call>",
	21:    `{"name": "get_weather", "arguments": {"city": "Paris"}}`,
	22:    "</tool_call>",
	23:    "Sure.",
	eosID: "<|eos|>",
}

var weatherTool = types.ChatCompletionTool{
	Type:     "function",
	Function: types.FunctionDefinition{Name: "get_weather"},
}

func newTestConverter(mutate func(*ConverterConfig)) *ResponseConverter {
	cfg := ConverterConfig{
		Tokenizer:         testTokenizer,
		RequestID:         "chatcmpl-test",
		Created:           1700000000,
		Model:             "test-model",
		SkipSpecialTokens: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewResponseConverter(cfg)
}

func mustConvert(t *testing.T, c *ResponseConverter, ev engine.Event) *types.CreateChatCompletionStreamResponse {
	t.Helper()
	chunk, err := c.Convert(ev)
	if err != nil {
		t.Fatalf("Convert(%T) error = %v", ev, err)
	}
	return chunk
}

func streamChunk(choice types.ChatCompletionStreamChoice, usage *types.CompletionUsage) *types.CreateChatCompletionStreamResponse {
	return &types.CreateChatCompletionStreamResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion.chunk",
		Created: 1700000000,
		Model:   "test-model",
		Choices: []types.ChatCompletionStreamChoice{choice},
		Usage:   usage,
	}
}

func content(chunk *types.CreateChatCompletionStreamResponse) string {
	if chunk == nil || len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
		return ""
	}
	return *chunk.Choices[0].Delta.Content
}

func TestResponseConverter_SimpleStream(t *testing.T) {
	c := newTestConverter(nil)

	events := []engine.Event{
		&engine.Chunk{Index: 0, TokenIDs: []uint32{1}, PromptTokens: 10, CompletionTokens: 1},
		&engine.Chunk{Index: 0, TokenIDs: []uint32{2}, PromptTokens: 10, CompletionTokens: 2},
		&engine.Complete{Index: 0, FinishReason: "stop", PromptTokens: 10, CompletionTokens: 2},
	}
	want := []*types.CreateChatCompletionStreamResponse{
		streamChunk(types.ChatCompletionStreamChoice{
			Delta: types.ChatCompletionStreamDelta{Role: ptr("assistant"), Content: ptr("Hel")},
		}, nil),
		streamChunk(types.ChatCompletionStreamChoice{
			Delta: types.ChatCompletionStreamDelta{Content: ptr("lo")},
		}, nil),
		streamChunk(types.ChatCompletionStreamChoice{
			FinishReason: ptr("stop"),
		}, &types.CompletionUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}),
	}

	for i, ev := range events {
		got := mustConvert(t, c, ev)
		if diff := cmp.Diff(want[i], got); diff != "" {
			t.Errorf("event %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	if len(c.states) != 0 {
		t.Errorf("states after Complete = %d, want 0", len(c.states))
	}
}

func TestResponseConverter_RoleOnlyOnce(t *testing.T) {
	c := newTestConverter(nil)

	roles := 0
	for _, id := range []uint32{1, 2, 3} {
		chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{id}})
		if chunk.Choices[0].Delta.Role != nil {
			roles++
		}
	}
	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop"})
	if done.Choices[0].Delta.Role != nil {
		roles++
	}

	if roles != 1 {
		t.Errorf("role emitted %d times, want 1", roles)
	}
}

func TestResponseConverter_EmptyDeltaSuppressed(t *testing.T) {
	c := newTestConverter(nil)

	first := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{12}})
	if got := content(first); got != "caf" {
		t.Fatalf("first content = %q, want %q", got, "caf")
	}

	// The first half of a two-byte character decodes to nothing yet.
	if held := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{10}}); held != nil {
		t.Errorf("incomplete character produced chunk %+v, want nil", held)
	}

	// No new tokens at all.
	if empty := mustConvert(t, c, &engine.Chunk{Index: 0}); empty != nil {
		t.Errorf("empty chunk produced %+v, want nil", empty)
	}

	second := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{11}})
	if got := content(second); got != "é" {
		t.Errorf("completed content = %q, want %q", got, "é")
	}
}

func TestResponseConverter_FirstChunkAlwaysEmitted(t *testing.T) {
	c := newTestConverter(nil)

	chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{10}})
	if chunk == nil {
		t.Fatal("first chunk = nil, want role announcement")
	}
	if chunk.Choices[0].Delta.Role == nil || *chunk.Choices[0].Delta.Role != "assistant" {
		t.Errorf("role = %v, want assistant", chunk.Choices[0].Delta.Role)
	}
	if chunk.Choices[0].Delta.Content != nil {
		t.Errorf("content = %q, want nil", *chunk.Choices[0].Delta.Content)
	}
}

func TestResponseConverter_Usage(t *testing.T) {
	tests := []struct {
		name    string
		initial *int32
		events  []engine.Event
		want    types.CompletionUsage
	}{
		{
			name: "tracked counts win over complete",
			events: []engine.Event{
				&engine.Chunk{Index: 0, TokenIDs: []uint32{1}, PromptTokens: 8, CompletionTokens: 3},
				&engine.Complete{Index: 0, PromptTokens: 1, CompletionTokens: 1},
			},
			want: types.CompletionUsage{PromptTokens: 8, CompletionTokens: 3, TotalTokens: 11},
		},
		{
			name:    "initial prompt count fills a missing prompt",
			initial: ptr(int32(7)),
			events: []engine.Event{
				&engine.Chunk{Index: 0, TokenIDs: []uint32{1}, CompletionTokens: 1},
				&engine.Complete{Index: 0},
			},
			want: types.CompletionUsage{PromptTokens: 7, CompletionTokens: 1, TotalTokens: 8},
		},
		{
			name:    "completion falls back to output ids",
			initial: ptr(int32(4)),
			events: []engine.Event{
				&engine.Complete{Index: 0, OutputIDs: []uint32{1, 2}},
			},
			want: types.CompletionUsage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
		},
		{
			name: "negative counts clamp to zero",
			events: []engine.Event{
				&engine.Complete{Index: 0, PromptTokens: -5, CompletionTokens: -1},
			},
			want: types.CompletionUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(nil)
			if tt.initial != nil {
				c.SetInitialPromptTokens(*tt.initial)
			}

			var last *types.CreateChatCompletionStreamResponse
			for _, ev := range tt.events {
				last = mustConvert(t, c, ev)
			}

			if last == nil || last.Usage == nil {
				t.Fatal("final chunk has no usage")
			}
			if diff := cmp.Diff(tt.want, *last.Usage); diff != "" {
				t.Errorf("usage mismatch (-want +got):\n%s", diff)
			}
			if last.Usage.TotalTokens != last.Usage.PromptTokens+last.Usage.CompletionTokens {
				t.Errorf("total_tokens = %d, want prompt + completion", last.Usage.TotalTokens)
			}
		})
	}
}

func TestResponseConverter_SetInitialPromptTokensOnce(t *testing.T) {
	c := newTestConverter(nil)
	c.SetInitialPromptTokens(5)
	c.SetInitialPromptTokens(9)

	chunk := mustConvert(t, c, &engine.Complete{Index: 0})
	if got := chunk.Usage.PromptTokens; got != 5 {
		t.Errorf("prompt_tokens = %d, want 5", got)
	}
}

func TestResponseConverter_StopSequence(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Stop = tokenizer.NewStopConfig([]string{"END"}, nil, false)
	})

	// "go END now"
	chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{4, 5, 6, 7, 8}})
	if got := content(chunk); got != "go " {
		t.Errorf("content = %q, want %q", got, "go ")
	}

	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "length"})
	choice := done.Choices[0]
	if choice.Delta.Content != nil {
		t.Errorf("final content = %q, want nil", *choice.Delta.Content)
	}
	if choice.FinishReason == nil || *choice.FinishReason != "stop" {
		t.Errorf("finish_reason = %v, want stop", choice.FinishReason)
	}
	if choice.MatchedStop != "END" {
		t.Errorf("matched_stop = %v, want END", choice.MatchedStop)
	}
}

func TestResponseConverter_StopSequenceAcrossChunks(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Stop = tokenizer.NewStopConfig([]string{"END"}, nil, false)
	})

	var got strings.Builder
	for _, id := range []uint32{4, 5, 6, 7, 8} {
		got.WriteString(content(mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{id}})))
	}
	got.WriteString(content(mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop"})))

	if got.String() != "go " {
		t.Errorf("streamed text = %q, want %q", got.String(), "go ")
	}
}

func TestResponseConverter_PartialStopReleasedOnComplete(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Stop = tokenizer.NewStopConfig([]string{"END"}, nil, false)
	})

	first := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{4, 5, 6}})
	if got := content(first); got != "go " {
		t.Errorf("content = %q, want %q", got, "go ")
	}

	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "length"})
	if got := content(done); got != "EN" {
		t.Errorf("final content = %q, want %q", got, "EN")
	}
	if got := *done.Choices[0].FinishReason; got != "length" {
		t.Errorf("finish_reason = %q, want length", got)
	}
	if done.Choices[0].MatchedStop != nil {
		t.Errorf("matched_stop = %v, want nil", done.Choices[0].MatchedStop)
	}
}

func TestResponseConverter_StopToken(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Stop = tokenizer.NewStopConfig(nil, []uint32{eosID}, false)
	})

	chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{1, eosID, 2}})
	if got := content(chunk); got != "Hel" {
		t.Errorf("content = %q, want %q", got, "Hel")
	}

	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop"})
	if done.Choices[0].MatchedStop != eosID {
		t.Errorf("matched_stop = %v (%T), want %d", done.Choices[0].MatchedStop, done.Choices[0].MatchedStop, eosID)
	}
}

func TestResponseConverter_EngineMatchedStopPassedThrough(t *testing.T) {
	c := newTestConverter(nil)

	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop", MatchedStop: "###"})
	if done.Choices[0].MatchedStop != "###" {
		t.Errorf("matched_stop = %v, want ###", done.Choices[0].MatchedStop)
	}
}

func TestResponseConverter_OutputIDsFallback(t *testing.T) {
	t.Run("nothing streamed", func(t *testing.T) {
		c := newTestConverter(nil)

		done := mustConvert(t, c, &engine.Complete{Index: 0, OutputIDs: []uint32{1, 2}, FinishReason: "length"})
		want := streamChunk(types.ChatCompletionStreamChoice{
			Delta:        types.ChatCompletionStreamDelta{Role: ptr("assistant"), Content: ptr("Hello")},
			FinishReason: ptr("length"),
		}, &types.CompletionUsage{CompletionTokens: 2, TotalTokens: 2})
		if diff := cmp.Diff(want, done); diff != "" {
			t.Errorf("complete mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ignored after streaming", func(t *testing.T) {
		c := newTestConverter(nil)
		mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{1}})

		done := mustConvert(t, c, &engine.Complete{Index: 0, OutputIDs: []uint32{1, 2}})
		if got := content(done); got != "" {
			t.Errorf("final content = %q, want empty", got)
		}
		if done.Choices[0].Delta.Role != nil {
			t.Error("role repeated on complete")
		}
	})
}

func TestResponseConverter_DefaultFinishReason(t *testing.T) {
	c := newTestConverter(nil)

	done := mustConvert(t, c, &engine.Complete{Index: 0})
	if done.Choices[0].FinishReason == nil || *done.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %v, want stop", done.Choices[0].FinishReason)
	}
}

func TestResponseConverter_EngineError(t *testing.T) {
	c := newTestConverter(nil)
	mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{1}})
	mustConvert(t, c, &engine.Chunk{Index: 1, TokenIDs: []uint32{4}})

	chunk, err := c.Convert(&engine.Error{Message: "out of memory", StatusCode: 503})
	if chunk != nil {
		t.Errorf("chunk = %+v, want nil", chunk)
	}

	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("error = %v, want *EngineError", err)
	}
	if engineErr.Message != "out of memory" || engineErr.StatusCode != 503 {
		t.Errorf("EngineError = %+v", engineErr)
	}
	if len(c.states) != 0 {
		t.Errorf("states after error = %d, want 0", len(c.states))
	}

	// A fresh state announces the role again.
	again := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{2}})
	if again.Choices[0].Delta.Role == nil {
		t.Error("role missing after state reset")
	}
}

type unknownEvent struct {
	engine.Event
}

func TestResponseConverter_NilAndUnknownEvents(t *testing.T) {
	c := newTestConverter(nil)

	for _, ev := range []engine.Event{nil, (*engine.Chunk)(nil), (*engine.Complete)(nil), (*engine.Error)(nil)} {
		chunk, err := c.Convert(ev)
		if chunk != nil || err != nil {
			t.Errorf("Convert(%T) = %v, %v; want nil, nil", ev, chunk, err)
		}
	}

	if _, err := c.Convert(unknownEvent{}); err == nil {
		t.Error("Convert(unknown) error = nil, want error")
	}
}

func TestResponseConverter_IndexIsolation(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Stop = tokenizer.NewStopConfig([]string{"END"}, nil, false)
	})

	texts := map[int]*strings.Builder{0: {}, 1: {}}
	roles := map[int]int{}
	record := func(chunk *types.CreateChatCompletionStreamResponse) {
		if chunk == nil {
			return
		}
		choice := chunk.Choices[0]
		if choice.Delta.Role != nil {
			roles[choice.Index]++
		}
		if choice.Delta.Content != nil {
			texts[choice.Index].WriteString(*choice.Delta.Content)
		}
	}

	// Index 1 holds a partial "EN" while index 0 keeps streaming.
	record(mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{1}}))
	record(mustConvert(t, c, &engine.Chunk{Index: 1, TokenIDs: []uint32{4, 5, 6}}))
	record(mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{2}}))
	record(mustConvert(t, c, &engine.Chunk{Index: 1, TokenIDs: []uint32{7, 8}}))
	record(mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{3}}))

	done0 := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "length"})
	record(done0)
	done1 := mustConvert(t, c, &engine.Complete{Index: 1, FinishReason: "length"})
	record(done1)

	if got := texts[0].String(); got != "Hello world" {
		t.Errorf("index 0 text = %q, want %q", got, "Hello world")
	}
	if got := texts[1].String(); got != "go " {
		t.Errorf("index 1 text = %q, want %q", got, "go ")
	}
	if roles[0] != 1 || roles[1] != 1 {
		t.Errorf("roles = %v, want one per index", roles)
	}
	if got := *done0.Choices[0].FinishReason; got != "length" {
		t.Errorf("index 0 finish_reason = %q, want length", got)
	}
	if got := *done1.Choices[0].FinishReason; got != "stop" {
		t.Errorf("index 1 finish_reason = %q, want stop", got)
	}
}

var openAIToolCallID = regexp.MustCompile(`^call_[0-9a-f]{24}$`)

func TestResponseConverter_ToolCalls(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.ParserFactory = toolparser.NewHermes
		cfg.Tools = []types.ChatCompletionTool{weatherTool}
		cfg.SkipSpecialTokens = false
	})

	text := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{23}})
	if got := content(text); got != "Sure." {
		t.Errorf("content = %q, want %q", got, "Sure.")
	}

	// The call is held until its closing marker arrives.
	for _, id := range []uint32{20, 21} {
		if chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{id}}); chunk != nil {
			t.Errorf("token %d produced chunk %+v, want nil", id, chunk)
		}
	}

	call := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{22}})
	if call == nil {
		t.Fatal("closing marker produced no chunk")
	}
	delta := call.Choices[0].Delta
	if delta.Content != nil {
		t.Errorf("content = %q, want nil", *delta.Content)
	}

	want := []types.ChatCompletionMessageToolCallChunk{{
		Index: 0,
		Type:  ptr("function"),
		Function: &types.FunctionCallChunk{
			Name:      ptr("get_weather"),
			Arguments: ptr(`{"city":"Paris"}`),
		},
	}}
	ignoreID := cmpopts.IgnoreFields(types.ChatCompletionMessageToolCallChunk{}, "ID")
	if diff := cmp.Diff(want, delta.ToolCalls, ignoreID); diff != "" {
		t.Errorf("tool calls mismatch (-want +got):\n%s", diff)
	}
	if id := delta.ToolCalls[0].ID; id == nil || !openAIToolCallID.MatchString(*id) {
		t.Errorf("tool call id = %v, want call_ + 24 hex", id)
	}

	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop"})
	if got := *done.Choices[0].FinishReason; got != "tool_calls" {
		t.Errorf("finish_reason = %q, want tool_calls", got)
	}
}

func TestResponseConverter_ToolCallFinishReasonKeepsLength(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.ParserFactory = toolparser.NewHermes
		cfg.Tools = []types.ChatCompletionTool{weatherTool}
	})

	mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{20, 21, 22}})
	done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "length"})
	if got := *done.Choices[0].FinishReason; got != "length" {
		t.Errorf("finish_reason = %q, want length", got)
	}
}

func TestResponseConverter_PositionalToolCallID(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.Model = "moonshotai/Kimi-K2-Instruct"
		cfg.ParserFactory = toolparser.NewHermes
		cfg.Tools = []types.ChatCompletionTool{weatherTool}
		cfg.HistoryToolCalls = 2
	})

	chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{20, 21, 22, 20, 21, 22}})

	var ids []string
	for _, tc := range chunk.Choices[0].Delta.ToolCalls {
		ids = append(ids, *tc.ID)
	}
	want := []string{"functions.get_weather:2", "functions.get_weather:3"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("tool call ids mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseConverter_ToolsDisabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConverterConfig)
	}{
		{
			name: "tool_choice none",
			mutate: func(cfg *ConverterConfig) {
				cfg.ParserFactory = toolparser.NewHermes
				cfg.Tools = []types.ChatCompletionTool{weatherTool}
				cfg.ToolChoice = &types.ChatCompletionToolChoice{Mode: types.ToolChoiceNone}
			},
		},
		{
			name: "no tools declared",
			mutate: func(cfg *ConverterConfig) {
				cfg.ParserFactory = toolparser.NewHermes
			},
		},
		{
			name: "no parser",
			mutate: func(cfg *ConverterConfig) {
				cfg.Tools = []types.ChatCompletionTool{weatherTool}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(tt.mutate)

			chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{20, 21, 22}})
			if len(chunk.Choices[0].Delta.ToolCalls) != 0 {
				t.Errorf("tool calls = %+v, want none", chunk.Choices[0].Delta.ToolCalls)
			}
			want := testTokenizer[20] + testTokenizer[21] + testTokenizer[22]
			if got := content(chunk); got != want {
				t.Errorf("content = %q, want %q", got, want)
			}

			done := mustConvert(t, c, &engine.Complete{Index: 0, FinishReason: "stop"})
			if got := *done.Choices[0].FinishReason; got != "stop" {
				t.Errorf("finish_reason = %q, want stop", got)
			}
		})
	}
}

func TestResponseConverter_SystemFingerprint(t *testing.T) {
	c := newTestConverter(func(cfg *ConverterConfig) {
		cfg.SystemFingerprint = "fp_test"
	})

	chunk := mustConvert(t, c, &engine.Chunk{Index: 0, TokenIDs: []uint32{1}})
	if chunk.SystemFingerprint == nil || *chunk.SystemFingerprint != "fp_test" {
		t.Errorf("system_fingerprint = %v, want fp_test", chunk.SystemFingerprint)
	}
}
