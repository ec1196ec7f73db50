package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"
)

const (
	// Cumulative output ids of long generations make for long lines.
	maxLineSize = 16 << 20

	finishAbort = "abort"
)

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// stream converts the engine's SSE payloads into Events.
//
// Each payload describes one output index:
//
//	{"index": 0, "output_ids": [...], "meta_info": {"prompt_tokens": 12,
//	 "completion_tokens": 3, "finish_reason": null}}
//
// output_ids are cumulative unless the engine streams incrementally.
type stream struct {
	body        io.ReadCloser
	incremental bool

	// outputs holds all ids seen per index.
	outputs map[uint32][]uint32
	done    map[uint32]bool
}

func newStream(body io.ReadCloser, incremental bool) *stream {
	return &stream{
		body:        body,
		incremental: incremental,
		outputs:     make(map[uint32][]uint32),
		done:        make(map[uint32]bool),
	}
}

func (s *stream) events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer func() { _ = s.body.Close() }()

		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			data, ok := bytes.CutPrefix(line, dataPrefix)
			if !ok {
				// Blank separators, comments and other SSE fields.
				continue
			}
			data = bytes.TrimSpace(data)
			if len(data) == 0 {
				continue
			}
			if bytes.Equal(data, doneMarker) {
				return
			}

			events, err := s.parse(data)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, ev := range events {
				if !yield(ev, nil) {
					return
				}
				if _, ok := ev.(*Error); ok {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("reading engine stream: %w", err))
			return
		}
		if pending := s.pending(); len(pending) > 0 {
			yield(nil, fmt.Errorf("engine stream ended before indices %v completed: %w", pending, io.ErrUnexpectedEOF))
		}
	}
}

// parse turns one payload into at most a Chunk followed by a Complete, or an Error.
func (s *stream) parse(data []byte) ([]Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid engine payload: %.200s", data)
	}
	payload := gjson.ParseBytes(data)

	if errVal := payload.Get("error"); errVal.Exists() && errVal.Type != gjson.Null {
		return []Event{payloadError(payload)}, nil
	}

	index := uint32(payload.Get("index").Uint())
	meta := payload.Get("meta_info")
	promptTokens := int32(meta.Get("prompt_tokens").Int())
	completionTokens := int32(meta.Get("completion_tokens").Int())

	ids := payload.Get("output_ids").Array()
	var newIDs []uint32
	if s.incremental {
		newIDs = make([]uint32, 0, len(ids))
		for _, id := range ids {
			newIDs = append(newIDs, uint32(id.Uint()))
		}
		s.outputs[index] = append(s.outputs[index], newIDs...)
	} else {
		seen := len(s.outputs[index])
		all := make([]uint32, 0, len(ids))
		for _, id := range ids {
			all = append(all, uint32(id.Uint()))
		}
		if len(all) > seen {
			newIDs = all[seen:]
		}
		s.outputs[index] = all
	}

	var events []Event
	if len(newIDs) > 0 {
		events = append(events, &Chunk{
			Index:            index,
			TokenIDs:         newIDs,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		})
	}

	finish := meta.Get("finish_reason")
	if !finish.Exists() || finish.Type == gjson.Null {
		return events, nil
	}

	reason := finish.Get("type").String()
	if finish.Type == gjson.String {
		reason = finish.String()
	}
	if reason == finishAbort {
		msg := finish.Get("message").String()
		if msg == "" {
			msg = "generation aborted by engine"
		}
		status := int32(finish.Get("status_code").Int())
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return []Event{&Error{Message: msg, StatusCode: status}}, nil
	}

	s.done[index] = true
	events = append(events, &Complete{
		Index:            index,
		OutputIDs:        s.outputs[index],
		FinishReason:     reason,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		MatchedStop:      matchedStop(finish.Get("matched")),
	})
	return events, nil
}

// pending lists indices that produced output but never completed.
func (s *stream) pending() []uint32 {
	var out []uint32
	for index := range s.outputs {
		if !s.done[index] {
			out = append(out, index)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func payloadError(payload gjson.Result) *Error {
	errVal := payload.Get("error")
	msg := errVal.Get("message").String()
	if errVal.Type == gjson.String {
		msg = errVal.String()
	}
	if msg == "" {
		msg = "engine error"
	}

	status := int32(errVal.Get("code").Int())
	if status == 0 {
		status = int32(payload.Get("status_code").Int())
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Message: msg, StatusCode: status}
}

func matchedStop(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return uint32(v.Uint())
	case gjson.String:
		return v.String()
	default:
		return nil
	}
}
