package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonicalStack produces the canonical byte encoding of a stack.
// CRITICAL: this is the ONLY serialization used for moment hashing; two
// stacks hash equal exactly when they compare equal via EqualStacks.
//
// Properties:
//  1. Text is NFC normalized before encoding
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Integer numbers encode without a decimal point, other numbers in
//     shortest round-trip form (both are stable across runs)
//  4. Blocks encode as their source-like rendering, which is itself
//     deterministic
func MarshalCanonicalStack(stack []Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range stack {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonicalValue(v)
		if err != nil {
			return nil, fmt.Errorf("stack[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Number:
		return []byte(FormatNumber(val)), nil
	case Text:
		return marshalCanonicalString(string(val))
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Block:
		// A block's canonical form is its deterministic source rendering,
		// domain-tagged so it cannot collide with a Text value.
		return marshalCanonicalString("block:" + FormatInstruction(PushBlock{Body: val.Body}))
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}

// marshalCanonicalString encodes a string as canonical JSON: NFC normalized,
// no HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	// Encoder appends a newline; strip it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
