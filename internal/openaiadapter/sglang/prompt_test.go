package sglang

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

func text(s string) types.MessageContent {
	return types.MessageContent{Text: s, Set: true}
}

func TestChatMLRenderer_Render(t *testing.T) {
	tests := []struct {
		name     string
		messages []types.ChatCompletionRequestMessage
		want     string
	}{
		{
			name: "single user turn",
			messages: []types.ChatCompletionRequestMessage{
				{Role: "user", Content: text("Hi")},
			},
			want: "<|im_start|>user\nHi<|im_end|>\n<|im_start|>assistant\n",
		},
		{
			name: "system and developer are hoisted",
			messages: []types.ChatCompletionRequestMessage{
				{Role: "user", Content: text("Hi")},
				{Role: "system", Content: text("Be brief.")},
				{Role: "developer", Content: text("No emoji.")},
			},
			want: "<|im_start|>system\nBe brief.\n\nNo emoji.<|im_end|>\n" +
				"<|im_start|>user\nHi<|im_end|>\n" +
				"<|im_start|>assistant\n",
		},
		{
			name: "multi turn",
			messages: []types.ChatCompletionRequestMessage{
				{Role: "user", Content: text("Hi")},
				{Role: "assistant", Content: text("Hello!")},
				{Role: "user", Content: text("Bye")},
			},
			want: "<|im_start|>user\nHi<|im_end|>\n" +
				"<|im_start|>assistant\nHello!<|im_end|>\n" +
				"<|im_start|>user\nBye<|im_end|>\n" +
				"<|im_start|>assistant\n",
		},
		{
			name: "tool call round trip",
			messages: []types.ChatCompletionRequestMessage{
				{Role: "user", Content: text("Weather?")},
				{Role: "assistant", ToolCalls: []types.ChatCompletionMessageToolCall{
					{ID: "call_1", Type: "function", Function: types.FunctionCall{Name: "get_weather", Arguments: `{"city": "Paris"}`}},
					{ID: "call_2", Type: "function", Function: types.FunctionCall{Name: "get_time"}},
				}},
				{Role: "tool", Content: text("sunny")},
				{Role: "tool", Content: text("noon")},
			},
			want: "<|im_start|>user\nWeather?<|im_end|>\n" +
				"<|im_start|>assistant\n" +
				"<tool_call>\n{\"name\":\"get_weather\",\"arguments\":{\"city\":\"Paris\"}}\n</tool_call>\n" +
				"<tool_call>\n{\"name\":\"get_time\",\"arguments\":{}}\n</tool_call><|im_end|>\n" +
				"<|im_start|>user\n<tool_response>\nsunny\n</tool_response>\n<tool_response>\nnoon\n</tool_response><|im_end|>\n" +
				"<|im_start|>assistant\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChatMLRenderer{}.Render(&types.CreateChatCompletionRequest{
				Model:    "test-model",
				Messages: tt.messages,
			})
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Render() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChatMLRenderer_Tools(t *testing.T) {
	tests := []struct {
		name       string
		choice     *types.ChatCompletionToolChoice
		wantTools  bool
		wantSuffix string
	}{
		{name: "auto", wantTools: true, wantSuffix: "</tool_call>"},
		{name: "none", choice: &types.ChatCompletionToolChoice{Mode: types.ToolChoiceNone}},
		{name: "required", choice: &types.ChatCompletionToolChoice{Mode: types.ToolChoiceRequired}, wantTools: true, wantSuffix: "You must call at least one function."},
		{name: "named", choice: &types.ChatCompletionToolChoice{Function: "get_weather"}, wantTools: true, wantSuffix: `You must call the function "get_weather".`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChatMLRenderer{}.Render(&types.CreateChatCompletionRequest{
				Model:      "test-model",
				Messages:   []types.ChatCompletionRequestMessage{{Role: "user", Content: text("Hi")}},
				Tools:      []types.ChatCompletionTool{weatherTool},
				ToolChoice: tt.choice,
			})
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			hasTools := strings.Contains(got, `<tools>`+"\n"+`{"function":{"name":"get_weather"`)
			if hasTools != tt.wantTools {
				t.Fatalf("tool signatures rendered = %v, want %v\n%s", hasTools, tt.wantTools, got)
			}
			if !tt.wantTools {
				return
			}

			system, _, _ := strings.Cut(got, "<|im_end|>")
			if !strings.HasSuffix(system, tt.wantSuffix) {
				t.Errorf("system turn does not end with %q:\n%s", tt.wantSuffix, system)
			}
		})
	}
}

func TestChatMLRenderer_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  *types.CreateChatCompletionRequest
	}{
		{
			name: "unsupported tool type",
			req: &types.CreateChatCompletionRequest{
				Messages: []types.ChatCompletionRequestMessage{{Role: "user", Content: text("Hi")}},
				Tools:    []types.ChatCompletionTool{{Type: "retrieval"}},
			},
		},
		{
			name: "invalid tool call arguments",
			req: &types.CreateChatCompletionRequest{
				Messages: []types.ChatCompletionRequestMessage{
					{Role: "assistant", ToolCalls: []types.ChatCompletionMessageToolCall{
						{ID: "call_1", Function: types.FunctionCall{Name: "f", Arguments: "{not json"}},
					}},
				},
			},
		},
		{
			name: "unknown role",
			req: &types.CreateChatCompletionRequest{
				Messages: []types.ChatCompletionRequestMessage{{Role: "narrator", Content: text("Once")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChatMLRenderer{}.Render(tt.req)
			var reqErr *requestError
			if !errors.As(err, &reqErr) {
				t.Errorf("Render() error = %v, want request error", err)
			}
		})
	}
}

func TestCountToolCalls(t *testing.T) {
	messages := []types.ChatCompletionRequestMessage{
		{Role: "user"},
		{Role: "assistant", ToolCalls: make([]types.ChatCompletionMessageToolCall, 2)},
		{Role: "tool"},
		{Role: "tool"},
		{Role: "assistant", ToolCalls: make([]types.ChatCompletionMessageToolCall, 1)},
	}
	if got := countToolCalls(messages); got != 3 {
		t.Errorf("countToolCalls() = %d, want 3", got)
	}
}
