package ir

import "strings"

// Instruction is a sealed interface over the flat instruction forms produced
// by the parser: literal pushes, symbol references, block literals, operator
// applications, and word definitions.
type Instruction interface {
	instruction() // Sealed - only these types implement it
}

// PushLiteral pushes a number or text literal onto the data stack.
type PushLiteral struct {
	Value Value
}

func (PushLiteral) instruction() {}

// PushSymbol references a name: if the name is a defined word the executor
// invokes it, otherwise the name is pushed as a Text value.
type PushSymbol struct {
	Name string
}

func (PushSymbol) instruction() {}

// PushBlock pushes an unevaluated instruction sequence as a Block value.
type PushBlock struct {
	Body []Instruction
}

func (PushBlock) instruction() {}

// Operation applies a built-in operator by name ("tick", "+", "if", ...).
type Operation struct {
	Name string
}

func (Operation) instruction() {}

// DefineWord registers a named instruction sequence in the word dictionary.
// Later definitions shadow earlier ones.
type DefineWord struct {
	Name string
	Body []Instruction
}

func (DefineWord) instruction() {}

// EqualInstruction reports deep equality between two instructions.
func EqualInstruction(a, b Instruction) bool {
	switch av := a.(type) {
	case PushLiteral:
		bv, ok := b.(PushLiteral)
		return ok && Equal(av.Value, bv.Value)
	case PushSymbol:
		bv, ok := b.(PushSymbol)
		return ok && av.Name == bv.Name
	case PushBlock:
		bv, ok := b.(PushBlock)
		return ok && equalBodies(av.Body, bv.Body)
	case Operation:
		bv, ok := b.(Operation)
		return ok && av.Name == bv.Name
	case DefineWord:
		bv, ok := b.(DefineWord)
		return ok && av.Name == bv.Name && equalBodies(av.Body, bv.Body)
	default:
		return false
	}
}

func equalBodies(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualInstruction(a[i], b[i]) {
			return false
		}
	}
	return true
}

// FormatInstruction renders an instruction in source-like form, used by
// block display and diagnostics.
func FormatInstruction(instr Instruction) string {
	switch in := instr.(type) {
	case PushLiteral:
		return Format(in.Value)
	case PushSymbol:
		return in.Name
	case PushBlock:
		parts := make([]string, len(in.Body))
		for i, b := range in.Body {
			parts[i] = FormatInstruction(b)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Operation:
		return in.Name
	case DefineWord:
		parts := make([]string, 0, len(in.Body)+2)
		parts = append(parts, in.Name)
		for _, b := range in.Body {
			parts = append(parts, FormatInstruction(b))
		}
		parts = append(parts, ";")
		return strings.Join(parts, " ")
	default:
		return "<unknown>"
	}
}
