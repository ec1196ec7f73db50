package types

// Error is the OpenAI error object.
type Error struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param,omitempty"`
	Code    *string `json:"code,omitempty"`
}

// ErrorResponse wraps Error in the envelope OpenAI clients expect: {"error": {...}}.
type ErrorResponse struct {
	// Err is the underlying error detail. JSON tag ensures it serializes as "error".
	Err Error `json:"error"`
}

// ErrorEvent is an SSE error event carrying an OpenAI error object.
type ErrorEvent struct {
	Event string `json:"event"`
	Data  Error  `json:"data"`
}

// Error implements the error interface for Error, returning the error message.
func (e *Error) Error() string {
	return e.Message
}

// Error implements the error interface for ErrorResponse, returning the underlying error message.
// This allows ErrorResponse to be used directly in error returns.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

// Error implements the error interface for ErrorEvent, returning the underlying error message.
// This allows ErrorEvent to be used in SSE streaming error responses.
func (e *ErrorEvent) Error() string {
	return e.Data.Message
}
