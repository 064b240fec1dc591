package expr

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Env is the evaluation environment: top-level names mapped to values.
// Values may be strings, numbers, bools, time.Time, time.Duration,
// []string, or nested map[string]interface{} for dotted access.
type Env map[string]interface{}

// EvalError reports a type or resolution failure during evaluation.
type EvalError struct {
	Expr    string
	Message string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("expr %q evaluation failed: %s", e.Expr, e.Message)
}

// Eval evaluates the compiled expression against the environment.
// The result must be a boolean; anything else is an error. Callers in
// the condition evaluator treat any error as a non-match.
func (e *Expr) Eval(env Env) (bool, error) {
	v, err := evalNode(e.root, env)
	if err != nil {
		return false, &EvalError{Expr: e.src, Message: err.Error()}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &EvalError{Expr: e.src, Message: fmt.Sprintf("result is %T, not a boolean", v)}
	}
	return b, nil
}

// evalNode evaluates one tree node.
func evalNode(n node, env Env) (interface{}, error) {
	switch t := n.(type) {
	case *literalNode:
		return t.value, nil

	case *listNode:
		out := make([]interface{}, 0, len(t.elements))
		for _, el := range t.elements {
			v, err := evalNode(el, env)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *accessorNode:
		return resolvePath(t.path, env)

	case *unaryNode:
		v, err := evalNode(t.operand, env)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("! requires a boolean, got %T", v)
		}
		return !b, nil

	case *binaryNode:
		return evalBinary(t, env)
	}

	return nil, fmt.Errorf("unknown node %T", n)
}

// evalBinary evaluates a binary operator. && and || short-circuit.
func evalBinary(b *binaryNode, env Env) (interface{}, error) {
	if b.op == "&&" || b.op == "||" {
		lv, err := evalNode(b.left, env)
		if err != nil {
			return nil, err
		}
		lb, ok := lv.(bool)
		if !ok {
			return nil, fmt.Errorf("%s requires booleans, got %T", b.op, lv)
		}
		if b.op == "&&" && !lb {
			return false, nil
		}
		if b.op == "||" && lb {
			return true, nil
		}
		rv, err := evalNode(b.right, env)
		if err != nil {
			return nil, err
		}
		rb, ok := rv.(bool)
		if !ok {
			return nil, fmt.Errorf("%s requires booleans, got %T", b.op, rv)
		}
		return rb, nil
	}

	lv, err := evalNode(b.left, env)
	if err != nil {
		return nil, err
	}
	rv, err := evalNode(b.right, env)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==":
		return looseEqual(lv, rv), nil
	case "!=":
		return !looseEqual(lv, rv), nil
	case "<", "<=", ">", ">=":
		return evalOrdering(b.op, lv, rv)
	case "+", "-":
		return evalArithmetic(b.op, lv, rv)
	case "contains":
		return evalContains(lv, rv)
	case "in":
		return evalIn(lv, rv)
	}

	return nil, fmt.Errorf("unknown operator %q", b.op)
}

// resolvePath walks a dotted path through the environment.
// A missing name resolves to nil rather than an error so that
// `payload.x == nil` style guards work.
func resolvePath(path []string, env Env) (interface{}, error) {
	var current interface{} = map[string]interface{}(env)
	for _, seg := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		current, ok = m[seg]
		if !ok {
			return nil, nil
		}
	}
	return current, nil
}

// looseEqual compares two values with numeric coercion.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	at, aok2 := a.(time.Time)
	bt, bok2 := b.(time.Time)
	if aok2 && bok2 {
		return at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// evalOrdering compares numbers, times, or durations.
func evalOrdering(op string, a, b interface{}) (interface{}, error) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%s: cannot compare time with %T", op, b)
		}
		return orderingResult(op, cmpTimes(at, bt)), nil
	}
	if ad, ok := a.(time.Duration); ok {
		bd, ok := b.(time.Duration)
		if !ok {
			return nil, fmt.Errorf("%s: cannot compare duration with %T", op, b)
		}
		return orderingResult(op, cmpFloats(float64(ad), float64(bd))), nil
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("%s: cannot compare %T with %T", op, a, b)
	}
	return orderingResult(op, cmpFloats(af, bf)), nil
}

// evalArithmetic handles time and duration + and -.
func evalArithmetic(op string, a, b interface{}) (interface{}, error) {
	switch av := a.(type) {
	case time.Time:
		switch bv := b.(type) {
		case time.Time:
			if op == "-" {
				return av.Sub(bv), nil
			}
			return nil, fmt.Errorf("cannot add two times")
		case time.Duration:
			if op == "-" {
				return av.Add(-bv), nil
			}
			return av.Add(bv), nil
		}
	case time.Duration:
		if bv, ok := b.(time.Duration); ok {
			if op == "-" {
				return av - bv, nil
			}
			return av + bv, nil
		}
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		if op == "-" {
			return af - bf, nil
		}
		return af + bf, nil
	}

	return nil, fmt.Errorf("%s: unsupported operands %T and %T", op, a, b)
}

// evalContains handles substring and list membership on the left side.
func evalContains(a, b interface{}) (interface{}, error) {
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("contains on a string requires a string, got %T", b)
		}
		return strings.Contains(av, bs), nil
	case []string:
		bs, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("contains on a list requires a string, got %T", b)
		}
		for _, s := range av {
			if s == bs {
				return true, nil
			}
		}
		return false, nil
	case []interface{}:
		for _, el := range av {
			if looseEqual(el, b) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("contains requires a string or list, got %T", a)
}

// evalIn is membership with the collection on the right side.
func evalIn(a, b interface{}) (interface{}, error) {
	v, err := evalContains(b, a)
	if err != nil {
		return nil, fmt.Errorf("in: %v", err)
	}
	return v, nil
}

// toFloat converts numeric types to float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// cmpTimes returns -1, 0, or 1.
func cmpTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// cmpFloats returns -1, 0, or 1.
func cmpFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// orderingResult maps a comparison result to the operator's outcome.
func orderingResult(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}
