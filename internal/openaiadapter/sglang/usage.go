package sglang

import (
	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

// finalUsage computes the usage reported with an index's final chunk.
//
// Counts tracked from the index's chunks win over the Complete event's own
// counts. A missing prompt count falls back to the pre-generation count and a
// missing completion count to the number of output ids.
func (c *ResponseConverter) finalUsage(st *indexState, ev *engine.Complete) *types.CompletionUsage {
	prompt := ev.PromptTokens
	if st.promptTokens != nil {
		prompt = *st.promptTokens
	}
	completion := ev.CompletionTokens
	if st.completionTokens != nil {
		completion = *st.completionTokens
	}

	if prompt == 0 && c.initialPromptTokens != nil {
		prompt = *c.initialPromptTokens
	}
	if completion == 0 && len(ev.OutputIDs) > 0 {
		completion = int32(len(ev.OutputIDs))
	}

	p := int(max(prompt, 0))
	n := int(max(completion, 0))
	return &types.CompletionUsage{
		PromptTokens:     p,
		CompletionTokens: n,
		TotalTokens:      p + n,
	}
}
