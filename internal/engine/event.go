package engine

// Event is a generation event for one request. It is implemented by *Chunk,
// *Complete and *Error only; consumers switch over those three.
type Event interface {
	event()
}

// Chunk carries the tokens generated for one output index since the last event.
type Chunk struct {
	Index            uint32
	TokenIDs         []uint32
	PromptTokens     int32
	CompletionTokens int32
}

// Complete terminates one output index.
type Complete struct {
	Index uint32
	// OutputIDs holds every token generated for the index.
	OutputIDs        []uint32
	FinishReason     string
	PromptTokens     int32
	CompletionTokens int32
	// MatchedStop is the stop string (string) or token id (uint32) the engine
	// stopped on, if any.
	MatchedStop any
}

// Error aborts the whole request.
type Error struct {
	Message    string
	StatusCode int32
}

func (*Chunk) event()    {}
func (*Complete) event() {}
func (*Error) event()    {}
