package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// sseServer answers /generate with the given data payloads and records the
// decoded request body.
func sseServer(t *testing.T, payloads []string, got *GenerateRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, p := range payloads {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", p)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, seq func(func(Event, error) bool)) ([]Event, error) {
	t.Helper()
	var events []Event
	for ev, err := range seq {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func TestClient_Generate_Cumulative(t *testing.T) {
	var req GenerateRequest
	srv := sseServer(t, []string{
		`{"index":0,"output_ids":[1],"meta_info":{"prompt_tokens":7,"completion_tokens":1,"finish_reason":null}}`,
		`{"index":1,"output_ids":[5],"meta_info":{"prompt_tokens":7,"completion_tokens":1,"finish_reason":null}}`,
		`{"index":0,"output_ids":[1,2,3],"meta_info":{"prompt_tokens":7,"completion_tokens":3,"finish_reason":null}}`,
		`{"index":0,"output_ids":[1,2,3],"meta_info":{"prompt_tokens":7,"completion_tokens":3,"finish_reason":{"type":"stop","matched":99}}}`,
		`{"index":1,"output_ids":[5,6],"meta_info":{"prompt_tokens":7,"completion_tokens":2,"finish_reason":{"type":"length","length":2}}}`,
		`[DONE]`,
	}, &req)

	client, err := NewClient(srv.URL + "/")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	seq, err := client.Generate(context.Background(), &GenerateRequest{
		RID:      "req-1",
		InputIDs: []uint32{10, 11},
		SamplingParams: SamplingParams{
			N:    2,
			Stop: []string{"END"},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	events, err := collect(t, seq)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}

	want := []Event{
		&Chunk{Index: 0, TokenIDs: []uint32{1}, PromptTokens: 7, CompletionTokens: 1},
		&Chunk{Index: 1, TokenIDs: []uint32{5}, PromptTokens: 7, CompletionTokens: 1},
		&Chunk{Index: 0, TokenIDs: []uint32{2, 3}, PromptTokens: 7, CompletionTokens: 3},
		&Complete{Index: 0, OutputIDs: []uint32{1, 2, 3}, FinishReason: "stop", PromptTokens: 7, CompletionTokens: 3, MatchedStop: uint32(99)},
		&Chunk{Index: 1, TokenIDs: []uint32{6}, PromptTokens: 7, CompletionTokens: 2},
		&Complete{Index: 1, OutputIDs: []uint32{5, 6}, FinishReason: "length", PromptTokens: 7, CompletionTokens: 2},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	if !req.Stream {
		t.Error("request stream = false, want true")
	}
	if req.RID != "req-1" || req.SamplingParams.N != 2 {
		t.Errorf("request = %+v", req)
	}
	if diff := cmp.Diff([]uint32{10, 11}, req.InputIDs); diff != "" {
		t.Errorf("input_ids mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Generate_Incremental(t *testing.T) {
	srv := sseServer(t, []string{
		`{"index":0,"output_ids":[1,2],"meta_info":{"prompt_tokens":3,"completion_tokens":2}}`,
		`{"index":0,"output_ids":[3],"meta_info":{"prompt_tokens":3,"completion_tokens":3,"finish_reason":{"type":"stop","matched":"END"}}}`,
		`[DONE]`,
	}, nil)

	client, err := NewClient(srv.URL, WithIncrementalOutput(true))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	seq, err := client.Generate(context.Background(), &GenerateRequest{InputIDs: []uint32{1}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	events, err := collect(t, seq)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}

	want := []Event{
		&Chunk{Index: 0, TokenIDs: []uint32{1, 2}, PromptTokens: 3, CompletionTokens: 2},
		&Chunk{Index: 0, TokenIDs: []uint32{3}, PromptTokens: 3, CompletionTokens: 3},
		&Complete{Index: 0, OutputIDs: []uint32{1, 2, 3}, FinishReason: "stop", PromptTokens: 3, CompletionTokens: 3, MatchedStop: "END"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Generate_EngineErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *Error
	}{
		{
			name:    "abort finish reason",
			payload: `{"index":0,"output_ids":[],"meta_info":{"finish_reason":{"type":"abort","message":"queue full","status_code":503}}}`,
			want:    &Error{Message: "queue full", StatusCode: 503},
		},
		{
			name:    "error object",
			payload: `{"error":{"message":"bad input","code":400}}`,
			want:    &Error{Message: "bad input", StatusCode: 400},
		},
		{
			name:    "error string",
			payload: `{"error":"boom"}`,
			want:    &Error{Message: "boom", StatusCode: 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := sseServer(t, []string{tt.payload, `[DONE]`}, nil)
			client, err := NewClient(srv.URL)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			seq, err := client.Generate(context.Background(), &GenerateRequest{})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			events, err := collect(t, seq)
			if err != nil {
				t.Fatalf("stream error = %v", err)
			}
			if diff := cmp.Diff([]Event{tt.want}, events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClient_Generate_UnexpectedEOF(t *testing.T) {
	srv := sseServer(t, []string{
		`{"index":0,"output_ids":[1],"meta_info":{"completion_tokens":1}}`,
	}, nil)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	seq, err := client.Generate(context.Background(), &GenerateRequest{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	events, err := collect(t, seq)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("stream error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
	if len(events) != 1 {
		t.Errorf("got %d events before error, want 1", len(events))
	}
}

func TestClient_Generate_InvalidPayload(t *testing.T) {
	srv := sseServer(t, []string{`{not json`}, nil)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	seq, err := client.Generate(context.Background(), &GenerateRequest{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := collect(t, seq); err == nil {
		t.Error("stream error = nil, want error")
	}
}

func TestClient_Generate_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"input too long"}}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Generate(context.Background(), &GenerateRequest{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Generate() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Message != "input too long" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestClient_Generate_BreakClosesBody(t *testing.T) {
	closed := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, "data: {\"index\":0,\"output_ids\":[1],\"meta_info\":{}}\n\n")
		flusher.Flush()
		<-r.Context().Done()
		close(closed)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	seq, err := client.Generate(context.Background(), &GenerateRequest{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for range seq {
		break
	}

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("engine request still open after breaking out of the stream")
	}
}

func TestClient_Health(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}

	healthy.Store(false)
	err = client.Health(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Health() error = %v, want 503 StatusError", err)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"localhost:30000", "ftp://engine", "://bad"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("NewClient(%q) error = nil, want error", raw)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"a"}}`, "a"},
		{`{"error":"b"}`, "b"},
		{`{"message":"c"}`, "c"},
		{`plain text`, "plain text"},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("errorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
