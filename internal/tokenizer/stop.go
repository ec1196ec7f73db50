package tokenizer

import (
	"slices"
	"strings"
)

// OutputKind classifies the result of feeding one token to a StopSequenceDecoder.
type OutputKind int

const (
	// OutputHeld means no text is available yet.
	OutputHeld OutputKind = iota
	// OutputText carries text; decoding continues.
	OutputText
	// OutputStoppedWithText carries the last text before the sequence ended.
	OutputStoppedWithText
	// OutputStopped means the sequence ended with nothing left to emit.
	OutputStopped
)

func (k OutputKind) String() string {
	switch k {
	case OutputHeld:
		return "held"
	case OutputText:
		return "text"
	case OutputStoppedWithText:
		return "stopped_with_text"
	case OutputStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SequenceOutput is the result of StopSequenceDecoder.ProcessToken.
type SequenceOutput struct {
	Kind OutputKind
	Text string
}

// Terminal reports whether the sequence has ended.
func (o SequenceOutput) Terminal() bool {
	return o.Kind == OutputStopped || o.Kind == OutputStoppedWithText
}

// StopConfig describes when a sequence ends.
//
// Hidden stop strings and tokens are trimmed from the output, visible ones are
// emitted before stopping.
type StopConfig struct {
	StopSequences        []string
	VisibleStopSequences []string
	StopTokens           []uint32
	VisibleStopTokens    []uint32
}

// NewStopConfig builds a StopConfig from request parameters. With
// noStopTrim the matched stop string or token stays in the output.
func NewStopConfig(stop []string, stopTokenIDs []uint32, noStopTrim bool) StopConfig {
	var cfg StopConfig
	for _, s := range stop {
		if s == "" {
			continue
		}
		if noStopTrim {
			cfg.VisibleStopSequences = append(cfg.VisibleStopSequences, s)
		} else {
			cfg.StopSequences = append(cfg.StopSequences, s)
		}
	}
	if noStopTrim {
		cfg.VisibleStopTokens = slices.Clone(stopTokenIDs)
	} else {
		cfg.StopTokens = slices.Clone(stopTokenIDs)
	}
	return cfg
}

// Empty reports whether the config can never stop a sequence.
func (c StopConfig) Empty() bool {
	return len(c.StopSequences) == 0 && len(c.VisibleStopSequences) == 0 &&
		len(c.StopTokens) == 0 && len(c.VisibleStopTokens) == 0
}

// StopSequenceDecoder decodes tokens incrementally and ends the sequence when
// a stop token or stop string appears.
//
// Text that could be the beginning of a stop string is jailed until the next
// token decides whether it matches.
//
// A StopSequenceDecoder is not safe for concurrent use.
type StopSequenceDecoder struct {
	tok               Tokenizer
	cfg               StopConfig
	skipSpecialTokens bool

	ids          []uint32
	prefixOffset int
	readOffset   int
	jail         string

	stopped bool
	matched any
}

// NewStopSequenceDecoder creates a decoder for one output sequence.
func NewStopSequenceDecoder(tok Tokenizer, cfg StopConfig, skipSpecialTokens bool) *StopSequenceDecoder {
	return &StopSequenceDecoder{
		tok:               tok,
		cfg:               cfg,
		skipSpecialTokens: skipSpecialTokens,
	}
}

// Stopped reports whether a stop condition was hit.
func (d *StopSequenceDecoder) Stopped() bool {
	return d.stopped
}

// Matched returns the stop string (string) or stop token id (uint32) that
// ended the sequence, or nil.
func (d *StopSequenceDecoder) Matched() any {
	return d.matched
}

// ProcessToken feeds one token id.
func (d *StopSequenceDecoder) ProcessToken(id uint32) (SequenceOutput, error) {
	if d.stopped {
		return SequenceOutput{Kind: OutputStopped}, nil
	}

	if slices.Contains(d.cfg.StopTokens, id) {
		d.stop(id)
		return d.releaseJail(""), nil
	}

	if slices.Contains(d.cfg.VisibleStopTokens, id) {
		tokenText, err := d.tok.Decode([]uint32{id}, d.skipSpecialTokens)
		if err != nil {
			return SequenceOutput{}, err
		}
		d.stop(id)
		return d.releaseJail(tokenText), nil
	}

	d.ids = append(d.ids, id)
	newText, ok, err := d.decodeNew(false)
	if err != nil || !ok {
		return SequenceOutput{Kind: OutputHeld}, err
	}

	return d.check(d.jail + newText), nil
}

// Flush releases held tokens and jailed text at the end of generation.
// Stop strings are still honored.
func (d *StopSequenceDecoder) Flush() (SequenceOutput, error) {
	if d.stopped {
		return SequenceOutput{Kind: OutputStopped}, nil
	}

	text := d.jail
	d.jail = ""
	if d.readOffset < len(d.ids) {
		newText, ok, err := d.decodeNew(true)
		if err != nil {
			return SequenceOutput{}, err
		}
		if ok {
			text += newText
		}
	}

	if text == "" {
		return SequenceOutput{Kind: OutputHeld}, nil
	}
	if out, ok := d.matchComplete(text); ok {
		return out, nil
	}
	return SequenceOutput{Kind: OutputText, Text: text}, nil
}

func (d *StopSequenceDecoder) stop(matched any) {
	d.stopped = true
	d.matched = matched
}

func (d *StopSequenceDecoder) releaseJail(suffix string) SequenceOutput {
	text := d.jail + suffix
	d.jail = ""
	if text == "" {
		return SequenceOutput{Kind: OutputStopped}
	}
	return SequenceOutput{Kind: OutputStoppedWithText, Text: text}
}

// decodeNew returns the text added by the ids past readOffset.
func (d *StopSequenceDecoder) decodeNew(force bool) (string, bool, error) {
	prefixText, err := d.tok.Decode(d.ids[d.prefixOffset:d.readOffset], d.skipSpecialTokens)
	if err != nil {
		return "", false, err
	}
	fullText, err := d.tok.Decode(d.ids[d.prefixOffset:], d.skipSpecialTokens)
	if err != nil {
		return "", false, err
	}

	if !force && incompleteSuffix(fullText) {
		return "", false, nil
	}
	if len(fullText) <= len(prefixText) {
		return "", false, nil
	}

	d.prefixOffset = d.readOffset
	d.readOffset = len(d.ids)
	if d.prefixOffset > 0 {
		n := copy(d.ids, d.ids[d.prefixOffset:])
		d.ids = d.ids[:n]
		d.readOffset -= d.prefixOffset
		d.prefixOffset = 0
	}
	return fullText[len(prefixText):], true, nil
}

// check searches text for stop strings and jails a trailing partial match.
func (d *StopSequenceDecoder) check(text string) SequenceOutput {
	if out, ok := d.matchComplete(text); ok {
		return out
	}

	partial := 0
	for _, seq := range d.stopStrings() {
		for i := min(len(text), len(seq)-1); i > partial; i-- {
			if strings.HasPrefix(seq, text[len(text)-i:]) {
				partial = i
				break
			}
		}
	}

	d.jail = text[len(text)-partial:]
	out := text[:len(text)-partial]
	if out == "" {
		return SequenceOutput{Kind: OutputHeld}
	}
	return SequenceOutput{Kind: OutputText, Text: out}
}

// matchComplete stops at the earliest complete stop string in text, hidden
// or visible. On equal positions hidden strings win.
func (d *StopSequenceDecoder) matchComplete(text string) (SequenceOutput, bool) {
	best, bestPos, visible := "", -1, false
	find := func(seqs []string, isVisible bool) {
		for _, seq := range seqs {
			if pos := strings.Index(text, seq); pos >= 0 && (bestPos < 0 || pos < bestPos) {
				best, bestPos, visible = seq, pos, isVisible
			}
		}
	}
	find(d.cfg.StopSequences, false)
	find(d.cfg.VisibleStopSequences, true)
	if bestPos < 0 {
		return SequenceOutput{}, false
	}

	d.stop(best)
	d.jail = ""
	end := bestPos
	if visible {
		end += len(best)
	}
	if end == 0 {
		return SequenceOutput{Kind: OutputStopped}, true
	}
	return SequenceOutput{Kind: OutputStoppedWithText, Text: text[:end]}, true
}

func (d *StopSequenceDecoder) stopStrings() []string {
	return slices.Concat(d.cfg.StopSequences, d.cfg.VisibleStopSequences)
}
