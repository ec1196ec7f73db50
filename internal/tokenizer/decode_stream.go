package tokenizer

import (
	"unicode/utf8"
)

// promptContextTokens is how many trailing prompt ids seed a DecodeStream.
// Some vocabularies render a token differently depending on what precedes it.
const promptContextTokens = 5

// DecodeStream decodes one output sequence token by token.
//
// A token is only released as text once the decoded window grows and does not
// end in an incomplete UTF-8 sequence. Tokens that split a multi-byte
// character are held and retried with the next token.
//
// A DecodeStream is not safe for concurrent use.
type DecodeStream struct {
	tok               Tokenizer
	skipSpecialTokens bool

	ids          []uint32
	prefixOffset int
	readOffset   int
}

// NewDecodeStream creates a decoder. promptIDs may be nil; otherwise its last
// few ids are used as decoding context and never emitted.
func NewDecodeStream(tok Tokenizer, promptIDs []uint32, skipSpecialTokens bool) *DecodeStream {
	context := promptIDs[max(0, len(promptIDs)-promptContextTokens):]
	ids := make([]uint32, len(context), len(context)+16)
	copy(ids, context)

	return &DecodeStream{
		tok:               tok,
		skipSpecialTokens: skipSpecialTokens,
		ids:               ids,
		prefixOffset:      0,
		readOffset:        len(ids),
	}
}

// Step feeds one token id. It returns the newly completed text and true, or
// false while the token is held.
func (d *DecodeStream) Step(id uint32) (string, bool, error) {
	d.ids = append(d.ids, id)
	return d.advance(false)
}

// Flush releases any held tokens, even if they still decode to an incomplete
// character.
func (d *DecodeStream) Flush() (string, bool, error) {
	if d.readOffset >= len(d.ids) {
		return "", false, nil
	}
	return d.advance(true)
}

func (d *DecodeStream) advance(force bool) (string, bool, error) {
	prefixText, err := d.tok.Decode(d.ids[d.prefixOffset:d.readOffset], d.skipSpecialTokens)
	if err != nil {
		return "", false, err
	}
	fullText, err := d.tok.Decode(d.ids[d.prefixOffset:], d.skipSpecialTokens)
	if err != nil {
		return "", false, err
	}

	if len(fullText) <= len(prefixText) {
		return "", false, nil
	}
	if !force && incompleteSuffix(fullText) {
		return "", false, nil
	}

	text := fullText[len(prefixText):]
	d.prefixOffset = d.readOffset
	d.readOffset = len(d.ids)
	d.compact()
	return text, true, nil
}

// compact drops ids that can no longer influence decoding.
func (d *DecodeStream) compact() {
	if d.prefixOffset == 0 {
		return
	}
	n := copy(d.ids, d.ids[d.prefixOffset:])
	d.ids = d.ids[:n]
	d.readOffset -= d.prefixOffset
	d.prefixOffset = 0
}

// incompleteSuffix reports whether s ends in a truncated UTF-8 sequence or a
// replacement character.
func incompleteSuffix(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == utf8.RuneError
}
