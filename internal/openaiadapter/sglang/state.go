package sglang

import (
	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/toolparser"
)

// indexState tracks one output index between its first event and its Complete.
type indexState struct {
	// isFirstChunk stays true until the role announcement was emitted.
	isFirstChunk bool
	// buffer holds decoded text not yet emitted as content or a tool call.
	buffer string

	promptTokens     *int32
	completionTokens *int32

	hasToolCalls bool

	// Exactly one of decoder and stop is set.
	decoder *tokenizer.DecodeStream
	stop    *tokenizer.StopSequenceDecoder
	parser  toolparser.Parser

	tokensSeen  int
	stopped     bool
	matchedStop any
}

func (c *ResponseConverter) newIndexState() *indexState {
	st := &indexState{isFirstChunk: true}

	if c.stopConfig.Empty() {
		st.decoder = tokenizer.NewDecodeStream(c.tokenizer, nil, c.skipSpecialTokens)
	} else {
		st.stop = tokenizer.NewStopSequenceDecoder(c.tokenizer, c.stopConfig, c.skipSpecialTokens)
	}

	if c.toolsEnabled() {
		st.parser = c.parserFactory()
	}
	return st
}

// state returns the state for index, creating it on first use.
func (c *ResponseConverter) state(index uint32) *indexState {
	st, ok := c.states[index]
	if !ok {
		st = c.newIndexState()
		c.states[index] = st
	}
	return st
}

// trackTokens records the engine's token counts for a chunk. Prompt tokens
// are taken from the chunk when reported, otherwise established once from
// the pre-generation count. Completion tokens are cumulative on the engine
// side and therefore replaced.
func (st *indexState) trackTokens(prompt, completion int32, initialPrompt *int32) {
	switch {
	case prompt > 0:
		st.promptTokens = &prompt
	case st.promptTokens == nil && initialPrompt != nil:
		p := *initialPrompt
		st.promptTokens = &p
	}
	st.completionTokens = &completion
}
