// Package compiler turns ChronoStack source text into the flat instruction
// sequence consumed by the engine.
//
// The pipeline is Lexer -> Parser -> []ir.Instruction. Both stages track
// line and column so every syntax error points at its source position.
// There is no AST beyond ir.Instruction: the language is concatenative, so
// a flat sequence with nested block bodies is the whole program structure.
package compiler
