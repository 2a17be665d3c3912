// Package engine implements the ChronoStack temporal execution core.
//
// The engine is the heart of ChronoStack - it owns the branching timeline of
// recorded stack states, dispatches instructions, and resolves the causality
// conflicts created when a program mutates a moment that already influenced
// the present.
//
// ARCHITECTURE:
//
// Single-Writer Execution:
// One Executor drives one Timeline, strictly sequentially. Branching creates
// independent data, not independent execution; exactly one branch receives
// instruction effects at a time. No locking is needed because no concurrent
// mutation is possible by construction.
//
// Instruction Processing Flow:
//  1. Executor pops/pushes the working data stack for ordinary operators
//  2. Temporal operators delegate to the Timeline
//  3. A conflicting send (or merge collision) delegates to the Resolver,
//     which searches for a self-consistent fixed point over the recorded
//     span and never fails - unresolved paradoxes are a recorded state
//  4. Control flow (if, loop, when-stable, words) recursively re-enters the
//     dispatch loop over a block's instruction sequence
//
// CRITICAL PATTERNS:
//
// Moment contiguity:
// Within a branch, moment indices are contiguous from 0 at every observable
// point. Rewinding then ticking truncates the stale future before appending;
// that truncation is the only way moments are ever deleted.
//
// Paradoxes are not errors:
// A paradox is a first-class recorded state (paradox flag + resolved value).
// Resolution always terminates within its iteration bound and always
// produces a best-effort value. Programs observe paradoxes through
// when-stable and paradox!, never through error returns.
package engine
