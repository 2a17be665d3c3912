// Package ir defines the value and instruction representation shared by the
// compiler, the engine, and every outer layer of ChronoStack.
//
// This package contains data types and their canonical encodings only. All
// other internal packages import ir; ir imports nothing internal, keeping it
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value and Instruction are sealed interfaces; only the types declared
//     here implement them.
//   - Values are moved between stacks and moments by copy. Blocks are the
//     one reference-shaped value, and their instruction sequences are never
//     mutated after parsing, so sharing the backing slice is safe.
//   - Canonical encoding (NFC-normalized, stable number formatting) is the
//     only serialization used for moment hashing.
package ir
