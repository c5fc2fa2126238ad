package filter

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ytfilter/sieve/filter/textnorm"
)

// Part-of-speech tags assigned by RuleTokenizer.
const (
	POSNoun    = "Noun"
	POSJosa    = "Josa"
	POSHangul  = "Hangul"
	POSAlpha   = "Alpha"
	POSNumber  = "Number"
	POSMixed   = "Mixed"
	POSUnknown = "Unknown"
)

// Token is a single linguistic token of normalized text. Start and End are byte
// offsets in to the text which was tokenized; a Tokenizer which can't provide
// offsets leaves both zero.
type Token struct {
	Word  string `json:"word"`
	POS   string `json:"pos"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Tokenizer segments normalized text in to tokens. Implementations must be
// deterministic, and must be safe for concurrent use.
type Tokenizer interface {
	Tokenize(normalized string) ([]Token, error)
}

// Lexicon reports whether a word is known as a whole, so the tokenizer doesn't
// split it.
type Lexicon interface {
	Contains(word string) bool
}

var ErrUnsupportedText = errors.New("tokenizer: unsupported text")

// Korean postpositions, longest first.
var josaSuffixes = []string{
	"에게서", "으로서", "으로써",
	"에서", "에게", "한테", "까지", "부터", "으로", "처럼", "보다", "이랑", "하고",
	"은", "는", "이", "가", "을", "를", "의", "에", "도", "로", "와", "과", "야", "아", "랑",
}

// RuleTokenizer splits on whitespace, and separates a trailing postposition
// from Hangul words, similar to (but much simpler than) a Korean morphological
// analyzer.
//
// A word is only split if the remaining stem has at least two syllables and the
// word as a whole is not in the lexicon (if one is configured).
type RuleTokenizer struct {
	Lexicon Lexicon
}

var _ Tokenizer = (*RuleTokenizer)(nil)

func NewRuleTokenizer(lex Lexicon) *RuleTokenizer {
	return &RuleTokenizer{Lexicon: lex}
}

func (t *RuleTokenizer) Tokenize(text string) ([]Token, error) {
	if !utf8.ValidString(text) {
		return nil, ErrUnsupportedText
	}

	tokens := []Token{}
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = t.appendWord(tokens, text[start:i], start)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = t.appendWord(tokens, text[start:], start)
	}
	return tokens, nil
}

func (t *RuleTokenizer) appendWord(tokens []Token, word string, offset int) []Token {
	pos := wordPOS(word)
	if pos != POSHangul {
		return append(tokens, Token{Word: word, POS: pos, Start: offset, End: offset + len(word)})
	}
	if t.Lexicon != nil && t.Lexicon.Contains(word) {
		return append(tokens, Token{Word: word, POS: POSNoun, Start: offset, End: offset + len(word)})
	}
	for _, suffix := range josaSuffixes {
		stem, ok := strings.CutSuffix(word, suffix)
		if !ok || utf8.RuneCountInString(stem) < 2 {
			continue
		}
		split := offset + len(stem)
		return append(tokens,
			Token{Word: stem, POS: POSNoun, Start: offset, End: split},
			Token{Word: suffix, POS: POSJosa, Start: split, End: offset + len(word)},
		)
	}
	return append(tokens, Token{Word: word, POS: POSNoun, Start: offset, End: offset + len(word)})
}

func wordPOS(word string) string {
	var hangul, alpha, digit, other bool
	for _, r := range word {
		switch {
		case textnorm.IsHangulSyllable(r):
			hangul = true
		case r >= 'a' && r <= 'z':
			alpha = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	switch {
	case other:
		return POSUnknown
	case hangul && !alpha && !digit:
		return POSHangul
	case alpha && !hangul && !digit:
		return POSAlpha
	case digit && !hangul && !alpha:
		return POSNumber
	default:
		return POSMixed
	}
}
