// Package tokenizer turns text into index terms. The same Analyzer must be
// used at index time and at query time so that query terms match indexed
// terms.
package tokenizer

import (
	"strings"
	"unicode"
)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has",
	"he", "in", "is", "it", "its", "of", "on", "or", "that", "the", "to",
	"was", "were", "will", "with", "this", "but", "they", "have", "had",
	"what", "when", "where", "who", "which", "their", "if", "each", "do",
	"not", "no", "so", "can",
}

// Token is one term and its position among the kept tokens of a text.
type Token struct {
	Term     string
	Position int
}

// Analyzer lower-cases text, splits it on anything that is not a letter or
// digit, drops short words and stop words, and optionally stems.
type Analyzer struct {
	minLength int
	stopWords map[string]struct{}
	stem      bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMinLength drops words shorter than n bytes.
func WithMinLength(n int) Option {
	return func(a *Analyzer) { a.minLength = n }
}

// WithStopWords replaces the stop word list. An empty list keeps every word.
func WithStopWords(words ...string) Option {
	return func(a *Analyzer) {
		a.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithStemming turns the suffix stemmer on or off.
func WithStemming(enabled bool) Option {
	return func(a *Analyzer) { a.stem = enabled }
}

// New returns an Analyzer with English defaults, modified by opts.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{minLength: 2, stem: true}
	WithStopWords(defaultStopWords...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var std = New()

// Default returns the shared default Analyzer.
func Default() *Analyzer { return std }

// Analyze returns the tokens of text in order.
func (a *Analyzer) Analyze(text string) []Token {
	var tokens []Token
	a.each(text, func(term string) {
		tokens = append(tokens, Token{Term: term, Position: len(tokens)})
	})
	return tokens
}

// Count returns the number of tokens Analyze would return.
func (a *Analyzer) Count(text string) int {
	n := 0
	a.each(text, func(string) { n++ })
	return n
}

// Term normalizes a single query word. ok is false when the word produces no
// term, for example a stop word.
func (a *Analyzer) Term(word string) (term string, ok bool) {
	a.each(word, func(t string) {
		if !ok {
			term, ok = t, true
		}
	})
	return term, ok
}

func (a *Analyzer) each(text string, fn func(term string)) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len(word) < a.minLength {
			continue
		}
		if _, stop := a.stopWords[word]; stop {
			continue
		}
		if a.stem {
			word = stem(word)
		}
		if word != "" {
			fn(word)
		}
	}
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// longer suffixes first; the first applicable rule wins
var suffixRules = []suffixRule{
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
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

func stem(word string) string {
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		if stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement; len(stemmed) >= rule.minLen {
			return stemmed
		}
	}
	return word
}
