package engine

import (
	"math"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// opError builds an operator-level RuntimeError; the timeline or executor
// attaches branch/moment/stack context before surfacing it.
func opError(code RuntimeErrorCode, msg string) *RuntimeError {
	return &RuntimeError{Code: code, Message: msg}
}

// applyBinary applies a built-in binary operator to two values.
//
// Compatibility is an explicit per-operator table: numeric arithmetic,
// text concatenation for "+", ordered comparison for numbers and text,
// truthiness logic for and/or. Mixed kinds are rejected - "text plus
// number" is a TypeMismatchError, not a coercion.
func applyBinary(op string, a, b ir.Value) (ir.Value, error) {
	switch op {
	case "+":
		if an, ok := a.(ir.Number); ok {
			if bn, ok := b.(ir.Number); ok {
				return ir.NewNumber(float64(an) + float64(bn)), nil
			}
		}
		if at, ok := a.(ir.Text); ok {
			if bt, ok := b.(ir.Text); ok {
				return ir.NewText(string(at) + string(bt)), nil
			}
		}
		return nil, opError(ErrCodeTypeMismatch, "'+' requires two numbers or two texts, got "+ir.KindName(a)+" and "+ir.KindName(b))

	case "-", "*", "/", "%":
		an, aOK := a.(ir.Number)
		bn, bOK := b.(ir.Number)
		if !aOK || !bOK {
			return nil, opError(ErrCodeTypeMismatch, "'"+op+"' requires two numbers, got "+ir.KindName(a)+" and "+ir.KindName(b))
		}
		switch op {
		case "-":
			return ir.NewNumber(float64(an) - float64(bn)), nil
		case "*":
			return ir.NewNumber(float64(an) * float64(bn)), nil
		case "/":
			if float64(bn) == 0 {
				return nil, opError(ErrCodeDivisionByZero, "division by zero")
			}
			return ir.NewNumber(float64(an) / float64(bn)), nil
		default: // "%"
			if float64(bn) == 0 {
				return nil, opError(ErrCodeDivisionByZero, "modulo by zero")
			}
			return ir.NewNumber(math.Mod(float64(an), float64(bn))), nil
		}

	case "<", ">":
		if an, ok := a.(ir.Number); ok {
			if bn, ok := b.(ir.Number); ok {
				if op == "<" {
					return ir.NewBool(float64(an) < float64(bn)), nil
				}
				return ir.NewBool(float64(an) > float64(bn)), nil
			}
		}
		if at, ok := a.(ir.Text); ok {
			if bt, ok := b.(ir.Text); ok {
				if op == "<" {
					return ir.NewBool(string(at) < string(bt)), nil
				}
				return ir.NewBool(string(at) > string(bt)), nil
			}
		}
		return nil, opError(ErrCodeTypeMismatch, "'"+op+"' requires two numbers or two texts, got "+ir.KindName(a)+" and "+ir.KindName(b))

	case "=":
		// Equality is total: values of different kinds compare unequal.
		return ir.NewBool(ir.Equal(a, b)), nil

	case "and":
		return ir.NewBool(ir.Truthy(a) && ir.Truthy(b)), nil

	case "or":
		return ir.NewBool(ir.Truthy(a) || ir.Truthy(b)), nil

	default:
		return nil, opError(ErrCodeUnknownOperation, "unknown binary operator "+op)
	}
}

// foldIdentity returns the identity element for a foldable operator.
// Comparisons and the remaining operators have none and cannot be folded.
func foldIdentity(op string) (ir.Value, bool) {
	switch op {
	case "+":
		return ir.NewNumber(0), true
	case "*":
		return ir.NewNumber(1), true
	case "and":
		return ir.NewBool(true), true
	case "or":
		return ir.NewBool(false), true
	default:
		return nil, false
	}
}

// isBinaryOp reports whether name is in the binary operator table, which is
// also the set of operators ripple accepts.
func isBinaryOp(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "<", ">", "=", "and", "or":
		return true
	}
	return false
}
