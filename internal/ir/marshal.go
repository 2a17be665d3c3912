package ir

import (
	"encoding/json"
	"fmt"
)

// Tagged JSON encoding with full fidelity, used by the session store.
// Every value and instruction is wrapped in {"t": <tag>, ...} so that blocks
// nested in stacks round-trip exactly.

type taggedValue struct {
	T string          `json:"t"`
	N *float64        `json:"n,omitempty"`
	S *string         `json:"s,omitempty"`
	B *bool           `json:"b,omitempty"`
	I []taggedInstr   `json:"i,omitempty"`
	R json.RawMessage `json:"-"`
}

type taggedInstr struct {
	T    string        `json:"t"`
	Name string        `json:"name,omitempty"`
	V    *taggedValue  `json:"v,omitempty"`
	Body []taggedInstr `json:"body,omitempty"`
}

// MarshalStack serializes a stack with full fidelity, blocks included.
func MarshalStack(stack []Value) ([]byte, error) {
	out := make([]taggedValue, len(stack))
	for i, v := range stack {
		tv, err := tagValue(v)
		if err != nil {
			return nil, fmt.Errorf("stack[%d]: %w", i, err)
		}
		out[i] = tv
	}
	return json.Marshal(out)
}

// UnmarshalStack reverses MarshalStack.
func UnmarshalStack(data []byte) ([]Value, error) {
	var raw []taggedValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]Value, len(raw))
	for i, tv := range raw {
		v, err := untagValue(tv)
		if err != nil {
			return nil, fmt.Errorf("stack[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// MarshalValue serializes a single value with full fidelity.
func MarshalValue(v Value) ([]byte, error) {
	tv, err := tagValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tv)
}

// UnmarshalValue reverses MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return nil, err
	}
	return untagValue(tv)
}

// MarshalProgram serializes an instruction sequence; used to persist word
// definitions.
func MarshalProgram(program []Instruction) ([]byte, error) {
	tagged, err := tagBody(program)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tagged)
}

// UnmarshalProgram reverses MarshalProgram.
func UnmarshalProgram(data []byte) ([]Instruction, error) {
	var raw []taggedInstr
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return untagBody(raw)
}

func tagValue(v Value) (taggedValue, error) {
	switch val := v.(type) {
	case Number:
		f := float64(val)
		return taggedValue{T: "num", N: &f}, nil
	case Text:
		s := string(val)
		return taggedValue{T: "text", S: &s}, nil
	case Bool:
		b := bool(val)
		return taggedValue{T: "bool", B: &b}, nil
	case Block:
		body, err := tagBody(val.Body)
		if err != nil {
			return taggedValue{}, err
		}
		return taggedValue{T: "block", I: body}, nil
	default:
		return taggedValue{}, fmt.Errorf("unknown value type: %T", v)
	}
}

func untagValue(tv taggedValue) (Value, error) {
	switch tv.T {
	case "num":
		if tv.N == nil {
			return nil, fmt.Errorf("num value missing payload")
		}
		return Number(*tv.N), nil
	case "text":
		if tv.S == nil {
			return nil, fmt.Errorf("text value missing payload")
		}
		return Text(*tv.S), nil
	case "bool":
		if tv.B == nil {
			return nil, fmt.Errorf("bool value missing payload")
		}
		return Bool(*tv.B), nil
	case "block":
		body, err := untagBody(tv.I)
		if err != nil {
			return nil, err
		}
		return Block{Body: body}, nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", tv.T)
	}
}

func tagBody(body []Instruction) ([]taggedInstr, error) {
	out := make([]taggedInstr, len(body))
	for i, instr := range body {
		ti, err := tagInstr(instr)
		if err != nil {
			return nil, fmt.Errorf("instruction[%d]: %w", i, err)
		}
		out[i] = ti
	}
	return out, nil
}

func untagBody(body []taggedInstr) ([]Instruction, error) {
	out := make([]Instruction, len(body))
	for i, ti := range body {
		instr, err := untagInstr(ti)
		if err != nil {
			return nil, fmt.Errorf("instruction[%d]: %w", i, err)
		}
		out[i] = instr
	}
	return out, nil
}

func tagInstr(instr Instruction) (taggedInstr, error) {
	switch in := instr.(type) {
	case PushLiteral:
		tv, err := tagValue(in.Value)
		if err != nil {
			return taggedInstr{}, err
		}
		return taggedInstr{T: "lit", V: &tv}, nil
	case PushSymbol:
		return taggedInstr{T: "sym", Name: in.Name}, nil
	case PushBlock:
		body, err := tagBody(in.Body)
		if err != nil {
			return taggedInstr{}, err
		}
		return taggedInstr{T: "blk", Body: body}, nil
	case Operation:
		return taggedInstr{T: "op", Name: in.Name}, nil
	case DefineWord:
		body, err := tagBody(in.Body)
		if err != nil {
			return taggedInstr{}, err
		}
		return taggedInstr{T: "def", Name: in.Name, Body: body}, nil
	default:
		return taggedInstr{}, fmt.Errorf("unknown instruction type: %T", instr)
	}
}

func untagInstr(ti taggedInstr) (Instruction, error) {
	switch ti.T {
	case "lit":
		if ti.V == nil {
			return nil, fmt.Errorf("lit instruction missing value")
		}
		v, err := untagValue(*ti.V)
		if err != nil {
			return nil, err
		}
		return PushLiteral{Value: v}, nil
	case "sym":
		return PushSymbol{Name: ti.Name}, nil
	case "blk":
		body, err := untagBody(ti.Body)
		if err != nil {
			return nil, err
		}
		return PushBlock{Body: body}, nil
	case "op":
		return Operation{Name: ti.Name}, nil
	case "def":
		body, err := untagBody(ti.Body)
		if err != nil {
			return nil, err
		}
		return DefineWord{Name: ti.Name, Body: body}, nil
	default:
		return nil, fmt.Errorf("unknown instruction tag %q", ti.T)
	}
}
