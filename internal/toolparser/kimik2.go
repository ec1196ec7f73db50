package toolparser

import (
	"strings"
)

const (
	kimiSectionBegin  = "<|tool_calls_section_begin|>"
	kimiSectionEnd    = "<|tool_calls_section_end|>"
	kimiCallBegin     = "<|tool_call_begin|>"
	kimiArgumentBegin = "<|tool_call_argument_begin|>"
	kimiCallEnd       = "<|tool_call_end|>"
)

// KimiK2 parses the tool call section emitted by Kimi K2 models:
//
//	<|tool_calls_section_begin|>
//	<|tool_call_begin|>functions.get_weather:0<|tool_call_argument_begin|>{"city":"Paris"}<|tool_call_end|>
//	<|tool_calls_section_end|>
//
// The markers are special tokens, so the sequence must be decoded with
// special tokens kept.
type KimiK2 struct {
	buf       string
	inSection bool
	nextIndex int
}

// Compile-time check to ensure KimiK2 implements Parser
var _ Parser = (*KimiK2)(nil)

// NewKimiK2 creates a Kimi K2 parser.
func NewKimiK2() Parser {
	return &KimiK2{}
}

// ParseIncremental implements Parser.
func (p *KimiK2) ParseIncremental(text string) Result {
	p.buf += text

	var res Result
	var normal strings.Builder
	for {
		if !p.inSection {
			start := strings.Index(p.buf, kimiSectionBegin)
			if start < 0 {
				keep := partialPrefixLen(p.buf, kimiSectionBegin)
				normal.WriteString(p.buf[:len(p.buf)-keep])
				p.buf = p.buf[len(p.buf)-keep:]
				break
			}
			normal.WriteString(p.buf[:start])
			p.buf = p.buf[start+len(kimiSectionBegin):]
			p.inSection = true
			continue
		}

		// Inside a section: whitespace between calls carries no content.
		p.buf = strings.TrimLeft(p.buf, " \t\r\n")

		if strings.HasPrefix(p.buf, kimiSectionEnd) {
			p.buf = p.buf[len(kimiSectionEnd):]
			p.inSection = false
			continue
		}

		if !strings.HasPrefix(p.buf, kimiCallBegin) {
			// Wait for more text unless the section is malformed.
			if strings.HasPrefix(kimiCallBegin, p.buf) || strings.HasPrefix(kimiSectionEnd, p.buf) {
				break
			}
			next := strings.Index(p.buf, kimiCallBegin)
			if i := strings.Index(p.buf, kimiSectionEnd); i >= 0 && (next < 0 || i < next) {
				next = i
			}
			if next < 0 {
				break
			}
			p.buf = p.buf[next:]
		}

		end := strings.Index(p.buf, kimiCallEnd)
		if end < 0 {
			break
		}
		call, ok := parseKimiCall(p.buf[len(kimiCallBegin):end])
		p.buf = p.buf[end+len(kimiCallEnd):]
		if !ok {
			continue
		}
		call.ToolIndex = p.nextIndex
		p.nextIndex++
		res.Calls = append(res.Calls, call)
	}

	res.NormalText = normal.String()
	if p.nextIndex > 0 && strings.TrimSpace(res.NormalText) == "" {
		res.NormalText = ""
	}
	return res
}

// Flush implements Parser. An unterminated section is discarded.
func (p *KimiK2) Flush() Result {
	rest := p.buf
	p.buf = ""
	if p.inSection {
		p.inSection = false
		return Result{}
	}
	return Result{NormalText: rest}
}

// parseKimiCall parses "functions.NAME:IDX<|tool_call_argument_begin|>ARGS".
func parseKimiCall(s string) (ToolCallItem, bool) {
	id, args, ok := strings.Cut(s, kimiArgumentBegin)
	if !ok {
		return ToolCallItem{}, false
	}

	name := strings.TrimSpace(id)
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return ToolCallItem{}, false
	}

	return ToolCallItem{
		Name:      name,
		Arguments: compactArguments(strings.TrimSpace(args)),
	}, true
}
