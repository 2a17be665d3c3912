package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for future encoding migrations.
const (
	DomainMoment  = "chronostack/moment/v1"
	DomainProgram = "chronostack/program/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MomentHash computes the content-addressed hash of a recorded moment.
// Identical (branch, index, stack) triples hash identically across runs,
// which the store uses for integrity checks and the harness for golden
// trace comparison.
func MomentHash(branch string, index int, stack []Value) (string, error) {
	canonical, err := MarshalCanonicalStack(stack)
	if err != nil {
		return "", fmt.Errorf("MomentHash: %w", err)
	}
	payload := fmt.Sprintf("%s\x00%d\x00%s", branch, index, canonical)
	return hashWithDomain(DomainMoment, []byte(payload)), nil
}

// ProgramHash computes the content-addressed hash of an instruction
// sequence, used to key saved sessions to the program that produced them.
func ProgramHash(program []Instruction) string {
	var buf []byte
	for i, instr := range program {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, FormatInstruction(instr)...)
	}
	return hashWithDomain(DomainProgram, buf)
}
