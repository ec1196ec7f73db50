// Package tokenizer provides token encoding and the incremental decoders used
// to turn generated token ids back into text while a response streams.
package tokenizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer encodes text into token ids and decodes ids back into text.
// Implementations must be safe for concurrent use; a single instance is
// shared by all requests.
type Tokenizer interface {
	Encode(text string) ([]uint32, error)
	Decode(ids []uint32, skipSpecialTokens bool) (string, error)
}

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "o200k_base"

// specialTokens lists the special tokens of each supported encoding.
// The BPE codec has no notion of them, so Tiktoken splits them out itself.
var specialTokens = map[string]map[string]uint32{
	"o200k_base": {
		"<|endoftext|>":   199999,
		"<|endofprompt|>": 200018,
	},
	"cl100k_base": {
		"<|endoftext|>":   100257,
		"<|fim_prefix|>":  100258,
		"<|fim_middle|>":  100259,
		"<|fim_suffix|>":  100260,
		"<|endofprompt|>": 100276,
	},
}

// Tiktoken implements Tokenizer on top of a tiktoken BPE codec.
type Tiktoken struct {
	name    string
	codec   tokenizer.Codec
	special map[string]uint32
	byID    map[uint32]string
	// longest first, so overlapping markers match greedily
	markers []string
}

// Compile-time check to ensure Tiktoken implements Tokenizer
var _ Tokenizer = (*Tiktoken)(nil)

// TiktokenOption customizes a Tiktoken.
type TiktokenOption func(*Tiktoken)

// WithSpecialToken registers an additional special token, e.g. a chat
// template marker the deployed model reserves an id for.
func WithSpecialToken(text string, id uint32) TiktokenOption {
	return func(t *Tiktoken) {
		t.special[text] = id
	}
}

// NewTiktoken loads the named tiktoken encoding (o200k_base, cl100k_base, ...).
func NewTiktoken(encoding string, opts ...TiktokenOption) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer %s: %w", encoding, err)
	}

	t := &Tiktoken{
		name:    encoding,
		codec:   codec,
		special: make(map[string]uint32),
	}
	for text, id := range specialTokens[encoding] {
		t.special[text] = id
	}
	for _, opt := range opts {
		opt(t)
	}

	t.byID = make(map[uint32]string, len(t.special))
	t.markers = make([]string, 0, len(t.special))
	for text, id := range t.special {
		t.byID[id] = text
		t.markers = append(t.markers, text)
	}
	sort.Slice(t.markers, func(i, j int) bool {
		if len(t.markers[i]) != len(t.markers[j]) {
			return len(t.markers[i]) > len(t.markers[j])
		}
		return t.markers[i] < t.markers[j]
	})

	return t, nil
}

// Name returns the encoding name.
func (t *Tiktoken) Name() string {
	return t.name
}

// IsSpecial reports whether id is a registered special token.
func (t *Tiktoken) IsSpecial(id uint32) bool {
	_, ok := t.byID[id]
	return ok
}

// Encode implements Tokenizer. Special token markers in text are encoded as
// their reserved ids.
func (t *Tiktoken) Encode(text string) ([]uint32, error) {
	var out []uint32
	for text != "" {
		pos, marker := t.nextMarker(text)
		segment := text
		if pos >= 0 {
			segment = text[:pos]
		}

		if segment != "" {
			ids, _, err := t.codec.Encode(segment)
			if err != nil {
				return nil, fmt.Errorf("encode text: %w", err)
			}
			for _, id := range ids {
				out = append(out, uint32(id))
			}
		}

		if pos < 0 {
			break
		}
		out = append(out, t.special[marker])
		text = text[pos+len(marker):]
	}
	return out, nil
}

// nextMarker finds the earliest special marker in text.
func (t *Tiktoken) nextMarker(text string) (int, string) {
	best, marker := -1, ""
	for _, m := range t.markers {
		if i := strings.Index(text, m); i >= 0 && (best < 0 || i < best) {
			best, marker = i, m
		}
	}
	return best, marker
}

// Decode implements Tokenizer. The result is the raw byte concatenation of
// the tokens and may end in an incomplete UTF-8 sequence.
func (t *Tiktoken) Decode(ids []uint32, skipSpecialTokens bool) (string, error) {
	var b strings.Builder
	run := make([]uint, 0, len(ids))

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		text, err := t.codec.Decode(run)
		if err != nil {
			return fmt.Errorf("decode tokens: %w", err)
		}
		b.WriteString(text)
		run = run[:0]
		return nil
	}

	for _, id := range ids {
		marker, ok := t.byID[id]
		if !ok {
			run = append(run, uint(id))
			continue
		}
		if err := flush(); err != nil {
			return "", err
		}
		if !skipSpecialTokens {
			b.WriteString(marker)
		}
	}
	if err := flush(); err != nil {
		return "", err
	}

	return b.String(), nil
}
