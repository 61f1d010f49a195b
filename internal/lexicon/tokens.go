package lexicon

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized tokens (tokenizer version 1).
//
// Text is lower-cased, split on whitespace, and every token is trimmed of
// leading/trailing runes that are neither letters nor digits. Tokens that are
// empty after trimming are dropped, so "silencio." and "silencio" tokenize the
// same way.
func Tokenize(text string) []string {
	text = strings.ToLower(strings.ToValidUTF8(text, "�"))
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.TrimFunc(f, notWordRune)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// RawTokens lower-cases and splits text on whitespace without trimming.
// Used by the lexical fingerprint, which must work on symbol-only content.
func RawTokens(text string) []string {
	return strings.Fields(strings.ToLower(strings.ToValidUTF8(text, "�")))
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// IsStopWord reports whether the token carries no topical signal.
func IsStopWord(token string) bool {
	return stopWords[token]
}

// English and Spanish function words; scraped fragments arrive in both.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "if": true,
	"of": true, "at": true, "by": true, "for": true, "with": true, "to": true, "from": true,
	"in": true, "on": true, "is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "as": true, "into": true, "than": true, "then": true, "so": true,
	"i": true, "you": true, "he": true, "she": true, "we": true, "they": true, "my": true,
	"your": true, "our": true, "their": true, "not": true, "no": true, "do": true,
	"la": true, "el": true, "los": true, "las": true, "un": true, "una": true, "unos": true,
	"unas": true, "de": true, "del": true, "al": true, "y": true, "o": true, "en": true,
	"que": true, "se": true, "su": true, "sus": true, "por": true, "para": true, "con": true,
	"es": true, "lo": true, "le": true, "les": true, "mi": true, "tu": true, "sin": true,
}
