package filter

import (
	"log/slog"
	"strings"
)

// Dictionary is the read-only word list lookup used by FirstPass. It is
// implemented by dictstore.Store.
type Dictionary interface {
	InWhitelist(word string) bool
	InBlacklist(word string) bool
	InSystem(word string) (string, bool)
}

// FirstPass is the lexical screening stage: normalization, tokenization, and
// word-list matching.
type FirstPass struct {
	Dict      Dictionary
	Tokenizer Tokenizer
	Logger    *slog.Logger
}

func NewFirstPass(dict Dictionary, tok Tokenizer, logger *slog.Logger) *FirstPass {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirstPass{
		Dict:      dict,
		Tokenizer: tok,
		Logger:    logger.With("stage", "first-pass"),
	}
}

// Execute screens the original text against the word lists. It never fails: if
// the tokenizer errors, the whole normalized text is treated as a single token.
func (fp *FirstPass) Execute(original string) *FilterResult {
	res := NewFilterResult(original)
	text := Normalize(original)

	tokens, err := fp.Tokenizer.Tokenize(text)
	if err != nil {
		fp.Logger.Warn("tokenizer failed, falling back to whole text", "err", err)
		tokens = []Token{{Word: text, POS: POSUnknown, Start: 0, End: len(text)}}
	}

	var b strings.Builder
	b.Grow(len(text))
	// cursor is how much of text has been copied to b; pos is the end of the
	// last located token
	cursor, pos := 0, 0
	for _, tok := range tokens {
		start, end, ok := locateToken(text, tok, pos)
		if !ok {
			fp.Logger.Debug("token not found in text, skipping", "token", tok.Word)
			continue
		}
		pos = end
		word := text[start:end]

		replacement := ""
		lower := strings.ToLower(word)
		switch {
		case strings.TrimSpace(lower) == "":
			// nothing to match
		case fp.Dict.InWhitelist(lower):
			// neutralized: suppresses blacklist and system checks for this token
			replacement = SentinelWhitelist
		case fp.Dict.InBlacklist(lower):
			replacement = SentinelBlacklist
			res.addDetection(word, CategoryUserBlacklist, StatusFilteredFirstPass)
		default:
			if cat, found := fp.Dict.InSystem(lower); found {
				replacement = SentinelSystem
				res.addDetection(word, CategorySystemKeyword, StatusFilteredFirstPass)
				fp.Logger.Debug("system dictionary match", "category", cat)
			}
		}

		if replacement == "" {
			continue
		}
		b.WriteString(text[cursor:start])
		b.WriteString(replacement)
		cursor = end
	}
	b.WriteString(text[cursor:])
	res.MaskedText = b.String()

	for _, item := range res.DetectedItems {
		detectionCount.WithLabelValues("first-pass", string(item.Category)).Inc()
	}
	return res
}

// Resolves the byte span of a token in the text. Spans reported by the
// tokenizer are trusted if they are in order and actually hold the token's
// word; otherwise the word is searched for, starting at the end of the previous
// token. Tokens never overlap.
func locateToken(text string, tok Token, from int) (int, int, bool) {
	if tok.Word == "" {
		return 0, 0, false
	}
	if tok.Start >= from && tok.End <= len(text) && tok.Start < tok.End && text[tok.Start:tok.End] == tok.Word {
		return tok.Start, tok.End, true
	}
	idx := strings.Index(text[from:], tok.Word)
	if idx < 0 {
		return 0, 0, false
	}
	start := from + idx
	return start, start + len(tok.Word), true
}
