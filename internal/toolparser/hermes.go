package toolparser

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	hermesStart = "<tool_call>"
	hermesEnd   = "</tool_call>"
)

// Hermes parses calls in the Hermes format used by Qwen, NousResearch and
// most ChatML models:
//
//	<tool_call>
//	{"name": "get_weather", "arguments": {"city": "Paris"}}
//	</tool_call>
type Hermes struct {
	buf       string
	nextIndex int
}

// Compile-time check to ensure Hermes implements Parser
var _ Parser = (*Hermes)(nil)

// NewHermes creates a Hermes parser.
func NewHermes() Parser {
	return &Hermes{}
}

// ParseIncremental implements Parser.
func (p *Hermes) ParseIncremental(text string) Result {
	p.buf += text

	var res Result
	var normal strings.Builder
	for {
		start := strings.Index(p.buf, hermesStart)
		if start < 0 {
			keep := partialPrefixLen(p.buf, hermesStart)
			normal.WriteString(p.buf[:len(p.buf)-keep])
			p.buf = p.buf[len(p.buf)-keep:]
			break
		}
		normal.WriteString(p.buf[:start])

		bodyStart := start + len(hermesStart)
		end := strings.Index(p.buf[bodyStart:], hermesEnd)
		if end < 0 {
			p.buf = p.buf[start:]
			break
		}
		body := p.buf[bodyStart : bodyStart+end]
		p.buf = p.buf[bodyStart+end+len(hermesEnd):]

		call, ok := parseHermesBody(body)
		if !ok {
			// Not a call after all; surface it unchanged.
			normal.WriteString(hermesStart + body + hermesEnd)
			continue
		}
		call.ToolIndex = p.nextIndex
		p.nextIndex++
		res.Calls = append(res.Calls, call)
	}

	res.NormalText = p.normalText(normal.String())
	return res
}

// Flush implements Parser. An unterminated call is returned as text.
func (p *Hermes) Flush() Result {
	rest := p.buf
	p.buf = ""
	return Result{NormalText: p.normalText(rest)}
}

// normalText drops the whitespace models put between consecutive calls.
func (p *Hermes) normalText(s string) string {
	if p.nextIndex > 0 && strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func parseHermesBody(body string) (ToolCallItem, bool) {
	body = strings.TrimSpace(body)
	if !gjson.Valid(body) {
		return ToolCallItem{}, false
	}

	parsed := gjson.Parse(body)
	name := parsed.Get("name")
	if name.Type != gjson.String || name.String() == "" {
		return ToolCallItem{}, false
	}

	args := parsed.Get("arguments")
	if !args.Exists() {
		args = parsed.Get("parameters")
	}

	var arguments string
	switch {
	case !args.Exists() || args.Type == gjson.Null:
		arguments = "{}"
	case args.Type == gjson.String:
		// Some models double-encode the arguments object.
		arguments = compactArguments(args.String())
	default:
		arguments = compactArguments(args.Raw)
	}

	return ToolCallItem{Name: name.String(), Arguments: arguments}, true
}
