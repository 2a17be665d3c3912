package engine

import (
	"errors"
	"fmt"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// RuntimeError represents an error detected during program execution.
//
// Every runtime error carries the temporal context at the point of failure:
// the active branch, the active moment index, and a snapshot of the working
// stack. Paradoxes are deliberately NOT runtime errors - resolution always
// produces a value.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Branch is the active branch when the error occurred.
	Branch string

	// Moment is the active moment index when the error occurred.
	Moment int

	// Stack is a snapshot of the working stack at failure.
	Stack []ir.Value

	// Word is the innermost user-defined word being executed, if any.
	Word string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStackUnderflow indicates an operator had too few operands.
	ErrCodeStackUnderflow RuntimeErrorCode = "STACK_UNDERFLOW"

	// ErrCodeTypeMismatch indicates incompatible operand kinds.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeOutOfRange indicates an echo/send index beyond recorded history.
	ErrCodeOutOfRange RuntimeErrorCode = "OUT_OF_RANGE"

	// ErrCodeNoSuchMoment indicates a peek-future beyond the recorded future.
	ErrCodeNoSuchMoment RuntimeErrorCode = "NO_SUCH_MOMENT"

	// ErrCodeDuplicateBranch indicates a branch name is already taken.
	ErrCodeDuplicateBranch RuntimeErrorCode = "DUPLICATE_BRANCH"

	// ErrCodeNoSuchBranch indicates a merge target does not exist.
	ErrCodeNoSuchBranch RuntimeErrorCode = "NO_SUCH_BRANCH"

	// ErrCodeUnfoldableOperator indicates temporal-fold was given an
	// operator with no identity element.
	ErrCodeUnfoldableOperator RuntimeErrorCode = "UNFOLDABLE_OPERATOR"

	// ErrCodeDivisionByZero indicates division or modulo by zero.
	ErrCodeDivisionByZero RuntimeErrorCode = "DIVISION_BY_ZERO"

	// ErrCodeRecursiveWord indicates a word invoked itself.
	ErrCodeRecursiveWord RuntimeErrorCode = "RECURSIVE_WORD"

	// ErrCodeUnknownOperation indicates an unrecognized operator name.
	ErrCodeUnknownOperation RuntimeErrorCode = "UNKNOWN_OPERATION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (at moment %d in branch %q)", e.Code, e.Message, e.Moment, e.Branch)
	if e.Word != "" {
		msg += fmt.Sprintf(" while executing word %q", e.Word)
	}
	if e.Stack != nil {
		msg += " with stack: " + ir.FormatStack(e.Stack)
	}
	return msg
}

// CodeOf extracts the RuntimeErrorCode from an error, or "" if the error is
// not a RuntimeError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsStackUnderflow reports whether err is a stack underflow.
func IsStackUnderflow(err error) bool { return CodeOf(err) == ErrCodeStackUnderflow }

// IsTypeMismatch reports whether err is a type mismatch.
func IsTypeMismatch(err error) bool { return CodeOf(err) == ErrCodeTypeMismatch }

// IsOutOfRange reports whether err is an out-of-range history access.
func IsOutOfRange(err error) bool { return CodeOf(err) == ErrCodeOutOfRange }

// IsNoSuchMoment reports whether err is a peek beyond the recorded future.
func IsNoSuchMoment(err error) bool { return CodeOf(err) == ErrCodeNoSuchMoment }
