package expr

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenType classifies lexer tokens.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenDuration
	tokenOperator // == != < <= > >= && || ! + -
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenDot
)

// token is one lexed token with its source position.
type token struct {
	typ tokenType
	val string
	pos int
}

// SyntaxError reports a lexing or parsing failure with its position.
type SyntaxError struct {
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr syntax error at position %d: %s", e.Pos, e.Message)
}

// durationUnits are the suffixes recognized on duration literals.
// Months and years use the same truncating convention as the date
// condition (30 and 365 days).
var durationUnits = []string{"m", "h", "d", "w", "mo", "y"}

// lex splits the source into tokens.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := rune(src[i])

		switch {
		case unicode.IsSpace(c):
			i++

		case c == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case c == '[':
			tokens = append(tokens, token{tokenLBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokenRBracket, "]", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++
		case c == '.':
			tokens = append(tokens, token{tokenDot, ".", i})
			i++

		case c == '"' || c == '\'':
			str, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenString, str, i})
			i = next

		case strings.ContainsRune("=!<>&|+-", c):
			op, next, err := lexOperator(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenOperator, op, i})
			i = next

		case unicode.IsDigit(c):
			tok, next := lexNumber(src, i)
			tokens = append(tokens, tok)
			i = next

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(src) && (unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i])) || src[i] == '_') {
				i++
			}
			tokens = append(tokens, token{tokenIdent, src[start:i], start})

		default:
			return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	tokens = append(tokens, token{tokenEOF, "", len(src)})
	return tokens, nil
}

// lexString scans a quoted string literal. Both single and double
// quotes are accepted; backslash escapes the quote character.
func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == '\\' && i+1 < len(src) {
			sb.WriteByte(src[i+1])
			i += 2
			continue
		}
		if c == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, &SyntaxError{Pos: start, Message: "unterminated string literal"}
}

// lexOperator scans a comparison or boolean operator.
func lexOperator(src string, start int) (string, int, error) {
	two := ""
	if start+2 <= len(src) {
		two = src[start : start+2]
	}
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||":
		return two, start + 2, nil
	}
	switch src[start] {
	case '<', '>', '!', '+', '-':
		return string(src[start]), start + 1, nil
	}
	return "", 0, &SyntaxError{Pos: start, Message: fmt.Sprintf("unknown operator %q", src[start])}
}

// lexNumber scans a number, or a duration literal when the digits are
// immediately followed by a known unit suffix.
func lexNumber(src string, start int) (token, int) {
	i := start
	for i < len(src) && (unicode.IsDigit(rune(src[i])) || src[i] == '.') {
		i++
	}
	num := src[start:i]

	// Longest unit suffix first so "mo" wins over "m".
	if i < len(src) {
		rest := src[i:]
		best := ""
		for _, u := range durationUnits {
			if strings.HasPrefix(rest, u) && len(u) > len(best) {
				// The suffix must not run into an identifier.
				end := i + len(u)
				if end >= len(src) || !(unicode.IsLetter(rune(src[end])) || src[end] == '_') {
					best = u
				}
			}
		}
		if best != "" {
			return token{tokenDuration, num + best, start}, i + len(best)
		}
	}

	return token{tokenNumber, num, start}, i
}
