// Package tokenizer turns field and query text into index terms.
// Text is NFKC-normalized, Unicode case-folded, split on anything that is not
// a letter or digit, and filtered by length. Stop-word removal and a simple
// suffix stemmer are available but off by default.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const DefaultMinLength = 2

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Options configures a Tokenizer. The zero value means DefaultMinLength with
// stemming and stop words disabled.
type Options struct {
	MinLength int
	Stem      bool
	StopWords bool
}

// Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	minLength int
	stem      bool
	stopWords bool
}

func New(opts Options) *Tokenizer {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	return &Tokenizer{
		minLength: opts.MinLength,
		stem:      opts.Stem,
		stopWords: opts.StopWords,
	}
}

// Default returns a tokenizer with default options.
func Default() *Tokenizer {
	return New(Options{})
}

// Normalize applies NFKC and full Unicode case folding.
// A cases.Caser keeps state, so each call gets its own.
func Normalize(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Tokenize breaks text into normalized Tokens. Positions count only the
// tokens that survive filtering.
func (t *Tokenizer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	words := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if utf8.RuneCountInString(word) < t.minLength {
			continue
		}
		if t.stopWords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		if t.stem {
			word = stem(word)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms returns the distinct terms of text in first-occurrence order.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// NormalizePrefix folds a suggestion prefix the same way terms are folded,
// without dropping short input.
func NormalizePrefix(prefix string) string {
	return strings.TrimSpace(Normalize(prefix))
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}
