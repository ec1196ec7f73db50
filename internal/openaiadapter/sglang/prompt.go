package sglang

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

// PromptRenderer renders a chat request into the prompt text fed to the model.
type PromptRenderer interface {
	Render(req *types.CreateChatCompletionRequest) (string, error)
}

// ChatML markers.
const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// ChatMLRenderer renders conversations in the ChatML format used by Qwen and
// other Hermes-style models. Declared tools are described in the system
// message and previous calls are rendered as <tool_call> blocks, which is the
// format the hermes tool parser reads back.
type ChatMLRenderer struct{}

// Compile-time check to ensure ChatMLRenderer implements PromptRenderer
var _ PromptRenderer = ChatMLRenderer{}

// Render implements PromptRenderer.
func (ChatMLRenderer) Render(req *types.CreateChatCompletionRequest) (string, error) {
	var system []string
	rest := make([]types.ChatCompletionRequestMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		// System and developer messages are hoisted into one system turn.
		if msg.Role == "system" || msg.Role == "developer" {
			system = append(system, msg.Content.Text)
			continue
		}
		rest = append(rest, msg)
	}

	if len(req.Tools) > 0 && !req.ToolChoice.IsNone() {
		instructions, err := toolInstructions(req.Tools, req.ToolChoice)
		if err != nil {
			return "", err
		}
		system = append(system, instructions)
	}

	var b strings.Builder
	if len(system) > 0 {
		writeTurn(&b, "system", strings.Join(system, "\n\n"))
	}

	for i := 0; i < len(rest); i++ {
		msg := rest[i]
		switch msg.Role {
		case "user":
			writeTurn(&b, "user", msg.Content.Text)

		case "assistant":
			content := msg.Content.Text
			for _, call := range msg.ToolCalls {
				block, err := toolCallBlock(call)
				if err != nil {
					return "", err
				}
				if content != "" {
					content += "\n"
				}
				content += block
			}
			writeTurn(&b, "assistant", content)

		case "tool":
			// Consecutive tool results share one user turn.
			var results []string
			for ; i < len(rest) && rest[i].Role == "tool"; i++ {
				results = append(results, "<tool_response>\n"+rest[i].Content.Text+"\n</tool_response>")
			}
			i--
			writeTurn(&b, "user", strings.Join(results, "\n"))

		default:
			return "", invalidRequest("unsupported message role %q", msg.Role)
		}
	}

	b.WriteString(imStart)
	b.WriteString("assistant\n")
	return b.String(), nil
}

func writeTurn(b *strings.Builder, role, content string) {
	b.WriteString(imStart)
	b.WriteString(role)
	b.WriteByte('\n')
	b.WriteString(content)
	b.WriteString(imEnd)
	b.WriteByte('\n')
}

// toolInstructions generates the system prompt section describing the tools
// and the <tool_call> output format.
func toolInstructions(tools []types.ChatCompletionTool, choice *types.ChatCompletionToolChoice) (string, error) {
	var b strings.Builder
	b.WriteString("# Tools\n\n")
	b.WriteString("You may call one or more functions to assist with the user query.\n\n")
	b.WriteString("You are provided with function signatures within <tools></tools> XML tags:\n<tools>")

	for i, tool := range tools {
		if tool.Type != functionType {
			return "", invalidRequest("unsupported tool type %q at index %d", tool.Type, i)
		}
		sig, err := json.Marshal(map[string]any{"type": functionType, "function": tool.Function})
		if err != nil {
			return "", invalidRequest("invalid tool %q: %v", tool.Function.Name, err)
		}
		b.WriteByte('\n')
		b.Write(sig)
	}

	b.WriteString("\n</tools>\n\n")
	b.WriteString("For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:\n")
	b.WriteString("<tool_call>\n{\"name\": <function-name>, \"arguments\": <args-json-object>}\n</tool_call>")

	switch {
	case choice == nil:
	case choice.Function != "":
		fmt.Fprintf(&b, "\n\nYou must call the function %q.", choice.Function)
	case choice.Mode == types.ToolChoiceRequired:
		b.WriteString("\n\nYou must call at least one function.")
	}
	return b.String(), nil
}

func toolCallBlock(call types.ChatCompletionMessageToolCall) (string, error) {
	args := json.RawMessage(call.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return "", invalidRequest("tool call %q has invalid JSON arguments", call.ID)
	}

	body, err := json.Marshal(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{call.Function.Name, args})
	if err != nil {
		return "", fmt.Errorf("marshaling tool call: %w", err)
	}
	return "<tool_call>\n" + string(body) + "\n</tool_call>", nil
}

// countToolCalls counts the tool calls already present in the conversation.
func countToolCalls(messages []types.ChatCompletionRequestMessage) int {
	n := 0
	for _, msg := range messages {
		if msg.Role == "assistant" {
			n += len(msg.ToolCalls)
		}
	}
	return n
}
