package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// node is one node of the parsed expression tree.
type node interface{}

// binaryNode applies an operator to two operands.
type binaryNode struct {
	op    string
	left  node
	right node
}

// unaryNode applies ! to an operand.
type unaryNode struct {
	op      string
	operand node
}

// accessorNode resolves a dotted path in the environment.
type accessorNode struct {
	path []string
}

// literalNode holds a constant value.
type literalNode struct {
	value interface{}
}

// listNode holds a bracketed list of literal values.
type listNode struct {
	elements []node
}

// Expr is a compiled expression, safe for reuse across evaluations.
type Expr struct {
	src  string
	root node
}

// Compile lexes and parses the expression source.
func Compile(src string) (*Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokenEOF {
		return nil, &SyntaxError{Pos: p.peek().pos, Message: fmt.Sprintf("unexpected trailing %q", p.peek().val)}
	}
	return &Expr{src: src, root: root}, nil
}

// String returns the original source.
func (e *Expr) String() string {
	return e.src
}

// exprParser is a recursive-descent parser over the token stream.
//
// Grammar (highest binding last):
//
//	or     := and ("||" and)*
//	and    := cmp ("&&" cmp)*
//	cmp    := sum (("=="|"!="|"<"|"<="|">"|">="|"contains"|"in") sum)?
//	sum    := unary (("+"|"-") unary)*
//	unary  := "!" unary | primary
//	primary := literal | list | accessor | "(" or ")"
type exprParser struct {
	tokens []token
	pos    int
}

func (p *exprParser) peek() token {
	return p.tokens[p.pos]
}

func (p *exprParser) next() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// parseOr parses "||" chains.
func (p *exprParser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokenOperator && p.peek().val == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

// parseAnd parses "&&" chains.
func (p *exprParser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokenOperator && p.peek().val == "&&" {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

// comparisonOps are the binary comparison operators.
var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// parseComparison parses an optional single comparison.
func (p *exprParser) parseComparison() (node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t.typ == tokenOperator && comparisonOps[t.val]:
		p.next()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: t.val, left: left, right: right}, nil

	case t.typ == tokenIdent && (t.val == "contains" || t.val == "in"):
		p.next()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: t.val, left: left, right: right}, nil
	}

	return left, nil
}

// parseSum parses "+"/"-" chains (time and duration arithmetic).
func (p *exprParser) parseSum() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokenOperator && (p.peek().val == "+" || p.peek().val == "-") {
		op := p.next().val
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

// parseUnary parses "!" prefixes.
func (p *exprParser) parseUnary() (node, error) {
	if p.peek().typ == tokenOperator && p.peek().val == "!" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "!", operand: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, lists, accessors, and parenthesized
// sub-expressions.
func (p *exprParser) parsePrimary() (node, error) {
	t := p.peek()

	switch t.typ {
	case tokenString:
		p.next()
		return &literalNode{value: t.val}, nil

	case tokenNumber:
		p.next()
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Message: fmt.Sprintf("invalid number %q", t.val)}
		}
		return &literalNode{value: f}, nil

	case tokenDuration:
		p.next()
		d, err := parseDuration(t.val)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Message: err.Error()}
		}
		return &literalNode{value: d}, nil

	case tokenIdent:
		switch t.val {
		case "true":
			p.next()
			return &literalNode{value: true}, nil
		case "false":
			p.next()
			return &literalNode{value: false}, nil
		case "nil", "null":
			p.next()
			return &literalNode{value: nil}, nil
		}
		return p.parseAccessor()

	case tokenLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().typ != tokenRParen {
			return nil, &SyntaxError{Pos: p.peek().pos, Message: "expected )"}
		}
		p.next()
		return inner, nil

	case tokenLBracket:
		return p.parseList()
	}

	return nil, &SyntaxError{Pos: t.pos, Message: fmt.Sprintf("unexpected %q", t.val)}
}

// parseAccessor parses a dotted identifier path.
func (p *exprParser) parseAccessor() (node, error) {
	var path []string
	t := p.next()
	path = append(path, t.val)
	for p.peek().typ == tokenDot {
		p.next()
		id := p.peek()
		if id.typ != tokenIdent {
			return nil, &SyntaxError{Pos: id.pos, Message: "expected field name after '.'"}
		}
		p.next()
		path = append(path, id.val)
	}
	return &accessorNode{path: path}, nil
}

// parseList parses a bracketed literal list.
func (p *exprParser) parseList() (node, error) {
	p.next() // consume [
	var elements []node
	for {
		if p.peek().typ == tokenRBracket {
			p.next()
			return &listNode{elements: elements}, nil
		}
		el, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		switch p.peek().typ {
		case tokenComma:
			p.next()
		case tokenRBracket:
			// closed on next loop iteration
		default:
			return nil, &SyntaxError{Pos: p.peek().pos, Message: "expected , or ] in list"}
		}
	}
}

// parseDuration converts a duration literal ("30d", "12h", "2w",
// "6mo", "1y") into a time.Duration. Months and years truncate to 30
// and 365 days, matching the date condition's arithmetic.
func parseDuration(lit string) (time.Duration, error) {
	unit := ""
	for _, u := range durationUnits {
		if strings.HasSuffix(lit, u) && len(u) > len(unit) {
			unit = u
		}
	}
	numStr := strings.TrimSuffix(lit, unit)
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", lit)
	}

	switch unit {
	case "m":
		return time.Duration(n * float64(time.Minute)), nil
	case "h":
		return time.Duration(n * float64(time.Hour)), nil
	case "d":
		return time.Duration(n * 24 * float64(time.Hour)), nil
	case "w":
		return time.Duration(n * 7 * 24 * float64(time.Hour)), nil
	case "mo":
		return time.Duration(n * 30 * 24 * float64(time.Hour)), nil
	case "y":
		return time.Duration(n * 365 * 24 * float64(time.Hour)), nil
	}
	return 0, fmt.Errorf("unknown duration unit in %q", lit)
}
