package engine

// GenerateRequest is the body of the engine's native /generate endpoint.
type GenerateRequest struct {
	RID            string         `json:"rid,omitempty"`
	InputIDs       []uint32       `json:"input_ids"`
	SamplingParams SamplingParams `json:"sampling_params"`
	Stream         bool           `json:"stream"`
}

// SamplingParams controls decoding on the engine.
type SamplingParams struct {
	MaxNewTokens      *int     `json:"max_new_tokens,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	N                 int      `json:"n,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	StopTokenIDs      []uint32 `json:"stop_token_ids,omitempty"`
	SkipSpecialTokens bool     `json:"skip_special_tokens"`
	NoStopTrim        bool     `json:"no_stop_trim,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	Seed              *int     `json:"sampling_seed,omitempty"`
}
