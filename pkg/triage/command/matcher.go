// Package command matches chat text against triage command patterns.
//
// A pattern is a space-delimited string of literal words and
// `{{...name}}` variables. The pattern is tokenized once at
// construction; matching free text against it produces named variadic
// captures that drive the same action pipeline as rule processing.
package command

import (
	"strings"
)

// labelMarker prefixes label words in chat input ("~bug").
const labelMarker = "~"

// TokenKind distinguishes literal and variable tokens.
type TokenKind int

const (
	// TokenLiteral requires an exact word at its position.
	TokenLiteral TokenKind = iota
	// TokenVariable captures a run of following words.
	TokenVariable
)

// Token is one element of a tokenized pattern. Tokens are immutable
// once the matcher is built.
type Token struct {
	Kind  TokenKind
	Value string // literal text, or the variable name
}

// MatchResult is the outcome of matching one input message.
type MatchResult struct {
	Matched   bool
	Variables map[string][]string
}

// Matcher matches input text against a single tokenized pattern.
// Matching is a pure function of the tokens and the input; a Matcher
// is safe for concurrent use.
type Matcher struct {
	pattern string
	tokens  []Token
}

// NewMatcher tokenizes the pattern. A whitespace-only pattern yields
// zero tokens and never matches non-empty input.
func NewMatcher(pattern string) *Matcher {
	words := strings.Fields(pattern)
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		if name, ok := variableName(w); ok {
			tokens = append(tokens, Token{Kind: TokenVariable, Value: name})
			continue
		}
		tokens = append(tokens, Token{Kind: TokenLiteral, Value: w})
	}
	return &Matcher{pattern: pattern, tokens: tokens}
}

// Pattern returns the original pattern string.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Tokens returns a copy of the token sequence.
func (m *Matcher) Tokens() []Token {
	return append([]Token(nil), m.tokens...)
}

// variableName reports whether a pattern word has the exact shape
// {{...name}} and extracts the name.
func variableName(word string) (string, bool) {
	if !strings.HasPrefix(word, "{{...") || !strings.HasSuffix(word, "}}") {
		return "", false
	}
	name := word[len("{{...") : len(word)-len("}}")]
	if name == "" {
		return "", false
	}
	return name, true
}

// Match walks tokens and input words in lock-step. Captured word lists
// preserve input order and are not deduplicated. The match fails
// unless every input word is consumed.
func (m *Matcher) Match(input string) MatchResult {
	noMatch := MatchResult{}

	words := strings.Fields(input)
	if len(words) == 0 || len(m.tokens) == 0 {
		return noMatch
	}

	variables := make(map[string][]string)
	wi := 0

	for ti, tok := range m.tokens {
		switch tok.Kind {
		case TokenLiteral:
			if wi >= len(words) || words[wi] != tok.Value {
				return noMatch
			}
			wi++

		case TokenVariable:
			var captured []string

			switch {
			case tok.Value == "labels":
				// Labels consume marked words only, stripping the
				// marker. The capture may be empty.
				for wi < len(words) && strings.HasPrefix(words[wi], labelMarker) {
					captured = append(captured, strings.TrimPrefix(words[wi], labelMarker))
					wi++
				}

			case nextLiteral(m.tokens, ti) != nil:
				stop := nextLiteral(m.tokens, ti).Value
				for wi < len(words) && words[wi] != stop {
					captured = append(captured, words[wi])
					wi++
				}

			default:
				// Last token, or followed by another variable:
				// consume everything that remains.
				captured = append(captured, words[wi:]...)
				wi = len(words)
			}

			variables[tok.Value] = captured
		}
	}

	if wi != len(words) {
		return noMatch
	}
	return MatchResult{Matched: true, Variables: variables}
}

// nextLiteral returns the token immediately after position i when it
// is a literal, else nil.
func nextLiteral(tokens []Token, i int) *Token {
	if i+1 < len(tokens) && tokens[i+1].Kind == TokenLiteral {
		return &tokens[i+1]
	}
	return nil
}
