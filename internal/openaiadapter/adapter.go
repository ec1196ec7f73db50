package openaiadapter

import (
	"context"
	"iter"

	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

// Adapter defines the contract for serving client requests from a generation backend.
//
// Type parameters allow the interface to express transformation contracts for different
// request/response shapes while maintaining compile-time type safety.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TChunk:    Client-specific streaming chunk protocol
type Adapter[TRequest, TResponse, TChunk any] interface {
	// ProcessRequest transforms the client request, runs the generation, and returns
	// the aggregated response.
	ProcessRequest(ctx context.Context, clientReq TRequest) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, starts the generation,
	// and returns an iterator of transformed chunks. Errors that occur before the
	// stream starts are returned directly.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest) (iter.Seq2[*TChunk, error], error)
}

// Type aliases for OpenAI-compatible chat completion operations.
// Request/response types are hand-written (see types package).
// CreateChatCompletionAdapter is the concrete adapter interface for this operation.
type (
	CreateChatCompletionRequest  = types.CreateChatCompletionRequest
	CreateChatCompletionResponse = types.CreateChatCompletionResponse
	CreateChatCompletionChunk    = types.CreateChatCompletionStreamResponse

	CreateChatCompletionAdapter = Adapter[
		CreateChatCompletionRequest,
		CreateChatCompletionResponse,
		CreateChatCompletionChunk,
	]
)

// Type aliases for OpenAI-compatible error responses.
type (
	Error         = types.Error
	ErrorResponse = types.ErrorResponse
	ErrorEvent    = types.ErrorEvent
)
