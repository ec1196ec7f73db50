package sglang

import (
	"sort"
	"strings"

	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

const completionObject = "chat.completion"

// usageTotals combines the per-choice usage of one request for the
// include_usage chunk of a stream. Every choice reports the same prompt, so
// the last one seen is kept while completion tokens are summed.
type usageTotals struct {
	seen       bool
	prompt     int
	completion int
}

func (u *usageTotals) add(usage *types.CompletionUsage) {
	if usage == nil {
		return
	}
	u.seen = true
	u.prompt = usage.PromptTokens
	u.completion += usage.CompletionTokens
}

func (u *usageTotals) total() *types.CompletionUsage {
	if !u.seen {
		return nil
	}
	return &types.CompletionUsage{
		PromptTokens:     u.prompt,
		CompletionTokens: u.completion,
		TotalTokens:      u.prompt + u.completion,
	}
}

type choiceAccumulator struct {
	content      strings.Builder
	reasoning    strings.Builder
	toolCalls    []types.ChatCompletionMessageToolCall
	toolIndex    map[int]int
	finishReason string
	matchedStop  any
}

// aggregator folds a chunk stream into a non-streaming response.
type aggregator struct {
	header  *types.CreateChatCompletionStreamResponse
	choices map[int]*choiceAccumulator
	// usage is the last usage seen on any chunk.
	usage *types.CompletionUsage
}

func newAggregator() *aggregator {
	return &aggregator{choices: make(map[int]*choiceAccumulator)}
}

func (a *aggregator) add(chunk *types.CreateChatCompletionStreamResponse) {
	if chunk == nil {
		return
	}
	if a.header == nil {
		a.header = chunk
	}
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}

	for _, choice := range chunk.Choices {
		acc, ok := a.choices[choice.Index]
		if !ok {
			acc = &choiceAccumulator{toolIndex: make(map[int]int)}
			a.choices[choice.Index] = acc
		}

		if choice.Delta.Content != nil {
			acc.content.WriteString(*choice.Delta.Content)
		}
		if choice.Delta.ReasoningContent != nil {
			acc.reasoning.WriteString(*choice.Delta.ReasoningContent)
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc.addToolCall(tc)
		}
		if choice.FinishReason != nil {
			acc.finishReason = *choice.FinishReason
			acc.matchedStop = choice.MatchedStop
		}
	}
}

// addToolCall merges a tool call fragment into the call with the same index.
func (acc *choiceAccumulator) addToolCall(tc types.ChatCompletionMessageToolCallChunk) {
	pos, ok := acc.toolIndex[tc.Index]
	if !ok {
		pos = len(acc.toolCalls)
		acc.toolIndex[tc.Index] = pos
		acc.toolCalls = append(acc.toolCalls, types.ChatCompletionMessageToolCall{Type: functionType})
	}

	call := &acc.toolCalls[pos]
	if tc.ID != nil {
		call.ID = *tc.ID
	}
	if tc.Type != nil {
		call.Type = *tc.Type
	}
	if tc.Function != nil {
		if tc.Function.Name != nil {
			call.Function.Name += *tc.Function.Name
		}
		if tc.Function.Arguments != nil {
			call.Function.Arguments += *tc.Function.Arguments
		}
	}
}

func (a *aggregator) response() *types.CreateChatCompletionResponse {
	resp := &types.CreateChatCompletionResponse{
		Object:  completionObject,
		Choices: make([]types.ChatCompletionChoice, 0, len(a.choices)),
		Usage:   a.usage,
	}
	if a.header != nil {
		resp.ID = a.header.ID
		resp.Created = a.header.Created
		resp.Model = a.header.Model
		resp.SystemFingerprint = a.header.SystemFingerprint
	}

	indices := make([]int, 0, len(a.choices))
	for index := range a.choices {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	for _, index := range indices {
		acc := a.choices[index]

		finishReason := acc.finishReason
		if finishReason == "" {
			finishReason = types.FinishReasonStop
		}

		msg := types.ChatCompletionResponseMessage{
			Role:      assistantRole,
			ToolCalls: acc.toolCalls,
		}
		// Content is null for pure tool call turns.
		if acc.content.Len() > 0 || len(acc.toolCalls) == 0 {
			msg.Content = ptr(acc.content.String())
		}
		if acc.reasoning.Len() > 0 {
			msg.ReasoningContent = ptr(acc.reasoning.String())
		}

		resp.Choices = append(resp.Choices, types.ChatCompletionChoice{
			Index:        index,
			Message:      msg,
			FinishReason: finishReason,
			MatchedStop:  acc.matchedStop,
		})
	}
	return resp
}
