// Package harness runs YAML conformance scenarios against the interpreter.
//
// A scenario names a program, the expected final stack, and assertions over
// the resulting timeline: moment contents, paradox flags, branch shapes, and
// the temporal operation trace. Golden trace files pin the exact operation
// sequence for regression comparison.
package harness
