package sglang

import (
	"errors"
	"fmt"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter"
)

// EngineError is returned when the engine reports a failure mid-stream.
type EngineError struct {
	Message    string
	StatusCode int32
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("server error: %s (status: %d)", e.Message, e.StatusCode)
}

// requestError marks failures caused by the client request itself.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func invalidRequest(format string, args ...any) error {
	return &requestError{err: fmt.Errorf(format, args...)}
}

// toChatCompletionError converts any error into the OpenAI error envelope.
// Engine failures keep their message and map their status to an error type;
// anything unrecognized becomes a server_error.
func toChatCompletionError(err error) *openaiadapter.ErrorResponse {
	if err == nil {
		return nil
	}

	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return openaiadapter.NewErrorResponse(reqErr.Error(), openaiadapter.ErrorTypeInvalidRequest)
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return openaiadapter.NewErrorResponse(
			engineErr.Message,
			openaiadapter.ErrorTypeForStatus(int(engineErr.StatusCode)),
		)
	}

	var statusErr *engine.StatusError
	if errors.As(err, &statusErr) {
		return openaiadapter.NewErrorResponse(
			statusErr.Message,
			openaiadapter.ErrorTypeForStatus(statusErr.StatusCode),
		)
	}

	return openaiadapter.NewErrorResponse(err.Error(), openaiadapter.ErrorTypeServer)
}
