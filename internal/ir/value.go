package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface representing the datum moved between the data
// stack, moments, and operators. Only Number, Text, Bool, and Block
// implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Number represents a numeric value. Integer literals and integer results
// are stored exactly; division may produce fractional values.
type Number float64

func (Number) value() {}

// Text represents a string value, including :symbol literals pushed as data.
type Text string

func (Text) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Block represents an unevaluated instruction sequence pushed by a block
// literal. The instruction slice is shared, never copied: blocks are
// immutable after parsing, so reference copies cannot alias mutable state.
type Block struct {
	Body []Instruction
}

func (Block) value() {}

// NewNumber creates a Number value.
func NewNumber(f float64) Number {
	return Number(f)
}

// NewText creates a Text value.
func NewText(s string) Text {
	return Text(s)
}

// NewBool creates a Bool value.
func NewBool(b bool) Bool {
	return Bool(b)
}

// NewBlock creates a Block value over an instruction sequence.
func NewBlock(body []Instruction) Block {
	return Block{Body: body}
}

// IsInteger reports whether n holds an exact integer.
func (n Number) IsInteger() bool {
	f := float64(n)
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

// Int returns n truncated to an int. Callers that need an exact integer
// (step counts, loop counts) must check IsInteger first.
func (n Number) Int() int {
	return int(float64(n))
}

// Truthy reports whether a value is considered true by control flow:
// non-zero numbers, non-empty text, true booleans, and non-empty blocks.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Number:
		return float64(val) != 0
	case Text:
		return len(val) > 0
	case Bool:
		return bool(val)
	case Block:
		return len(val.Body) > 0
	default:
		return false
	}
}

// Equal reports deep equality between two values. Numbers compare exactly;
// the resolver's epsilon tolerance is a resolver concern, not a value one.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Block:
		bv, ok := b.(Block)
		if !ok || len(av.Body) != len(bv.Body) {
			return false
		}
		for i := range av.Body {
			if !EqualInstruction(av.Body[i], bv.Body[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CopyStack returns an independent copy of a stack. Element values are
// immutable (blocks share their backing slice but are never mutated), so a
// shallow slice copy is a complete snapshot.
func CopyStack(stack []Value) []Value {
	if stack == nil {
		return nil
	}
	out := make([]Value, len(stack))
	copy(out, stack)
	return out
}

// EqualStacks reports element-wise equality of two stacks.
func EqualStacks(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// FormatNumber renders a Number the way the REPL displays it: integers
// without a decimal point, everything else in shortest round-trip form.
func FormatNumber(n Number) string {
	if n.IsInteger() && math.Abs(float64(n)) < 1e15 {
		return strconv.FormatInt(int64(float64(n)), 10)
	}
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// Format renders a value for display: text quoted, blocks abbreviated.
func Format(v Value) string {
	switch val := v.(type) {
	case Number:
		return FormatNumber(val)
	case Text:
		return strconv.Quote(string(val))
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Block:
		if len(val.Body) <= 3 {
			parts := make([]string, len(val.Body))
			for i, instr := range val.Body {
				parts[i] = FormatInstruction(instr)
			}
			return "[" + strings.Join(parts, " ") + "]"
		}
		return fmt.Sprintf("[...%d instructions...]", len(val.Body))
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// FormatStack renders a whole stack bottom-to-top for display.
func FormatStack(stack []Value) string {
	if len(stack) == 0 {
		return "[]"
	}
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = Format(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// KindName names a value's kind for type-mismatch diagnostics.
func KindName(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Text:
		return "text"
	case Bool:
		return "boolean"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("%T", v)
	}
}
