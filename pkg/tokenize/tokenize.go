/*
Package tokenize adapts a morphological segmenter to the build pipeline.

The production implementation wraps the kagome v2 analyzer with the embedded
IPA dictionary. Dictionary data is loaded once and shared read-only; each
pipeline worker owns its own Segmenter since the analyzer itself is not safe
for concurrent use.
*/
package tokenize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// SegmentationError reports a document the segmenter rejected. It is
// recoverable: the caller skips the offending document and continues.
type SegmentationError struct {
	Reason string
	Err    error
}

func (e *SegmentationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("segmentation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("segmentation failed: %s", e.Reason)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// Segmenter produces the ordered surface forms of one document or sentence.
// The returned slice is a finite, restartable sequence in document order.
type Segmenter interface {
	Tokens(text string) ([]string, error)
}

// Kagome is the kagome-backed Segmenter.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome builds a Segmenter over the embedded IPA dictionary.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("initializing kagome tokenizer: %w", err)
	}
	return &Kagome{t: t}, nil
}

// Tokens segments text into surface forms. Whitespace-only morphemes are
// dropped so that surfaces never contain the key delimiter.
func (k *Kagome) Tokens(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, &SegmentationError{Reason: "invalid UTF-8 input"}
	}
	toks := k.t.Tokenize(text)
	surfaces := make([]string, 0, len(toks))
	for _, tok := range toks {
		s := strings.TrimSpace(tok.Surface)
		if s == "" {
			continue
		}
		surfaces = append(surfaces, s)
	}
	return surfaces, nil
}

// sentence terminators: Japanese and ASCII periods, exclamation and
// question marks, plus line breaks.
func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '．', '.', '！', '!', '？', '?', '\n', '\r':
		return true
	}
	return false
}

// SplitSentences cuts a document into sentence units. N-gram windows are
// extracted per sentence and therefore never cross these boundaries.
// Fragments shorter than minSentenceRunes runes are discarded.
func SplitSentences(text string) []string {
	const minSentenceRunes = 2

	var sentences []string
	for _, raw := range strings.FieldsFunc(text, isSentenceEnd) {
		s := strings.TrimFunc(raw, unicode.IsSpace)
		if utf8.RuneCountInString(s) < minSentenceRunes {
			continue
		}
		sentences = append(sentences, s)
	}
	return sentences
}
