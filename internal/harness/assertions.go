package harness

import (
	"fmt"
	"strings"

	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
)

// AssertionError reports one failed check with enough context to debug it
// without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []engine.TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\ntrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s@%d %s\n", ev.Seq, ev.Op, ev.Branch, ev.Moment, ev.Detail)
		}
	}
	return buf.String()
}

// Check validates a scenario's expectations against a run result. It returns
// the first failing check, or nil when everything holds.
func Check(scenario *Scenario, result *Result) error {
	if scenario.Error != "" {
		if result.Err == nil {
			return &AssertionError{
				Type:     "error",
				Expected: fmt.Sprintf("runtime error with code %s", scenario.Error),
				Actual:   "program succeeded",
				Trace:    result.Trace,
			}
		}
		if code := engine.CodeOf(result.Err); string(code) != scenario.Error {
			return &AssertionError{
				Type:     "error",
				Expected: fmt.Sprintf("error code %s", scenario.Error),
				Actual:   fmt.Sprintf("error code %s (%v)", code, result.Err),
				Trace:    result.Trace,
			}
		}
	} else {
		if result.Err != nil {
			return &AssertionError{
				Type:     "error",
				Expected: "program succeeds",
				Actual:   fmt.Sprintf("runtime error: %v", result.Err),
				Trace:    result.Trace,
			}
		}
		if scenario.Stack != nil {
			if err := checkStack(scenario.Stack, result); err != nil {
				return err
			}
		}
	}

	for i, a := range scenario.Assertions {
		if err := checkAssertion(&a, result); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

// checkStack compares the final working stack against its expected display
// rendering, bottom first.
func checkStack(expected []string, result *Result) error {
	actual := make([]string, len(result.Stack))
	for i, v := range result.Stack {
		actual[i] = ir.Format(v)
	}
	if len(actual) != len(expected) || !equalStrings(actual, expected) {
		return &AssertionError{
			Type:     "stack",
			Expected: "[" + strings.Join(expected, " ") + "]",
			Actual:   ir.FormatStack(result.Stack),
			Trace:    result.Trace,
		}
	}
	return nil
}

func checkAssertion(a *Assertion, result *Result) error {
	switch a.Type {
	case AssertMomentTop:
		return assertMomentTop(a, result)
	case AssertParadox:
		return assertParadox(a, result)
	case AssertBranchLength:
		return assertBranchLength(a, result)
	case AssertActive:
		return assertActive(a, result)
	case AssertStable:
		return assertStable(a, result)
	case AssertTraceOrder:
		return assertTraceOrder(a, result)
	case AssertTraceCount:
		return assertTraceCount(a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// momentAt looks up a moment, failing with a descriptive assertion error.
func momentAt(a *Assertion, result *Result) (*engine.Moment, *AssertionError) {
	branch, ok := result.Timeline.Branch(a.Branch)
	if !ok {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("branch %q exists", a.Branch),
			Actual:   "no such branch",
			Trace:    result.Trace,
		}
	}
	moment, ok := branch.Moment(a.Index)
	if !ok {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("moment %d exists in branch %q", a.Index, a.Branch),
			Actual:   fmt.Sprintf("branch has %d moment(s)", branch.Len()),
			Trace:    result.Trace,
		}
	}
	return moment, nil
}

func assertMomentTop(a *Assertion, result *Result) error {
	moment, fail := momentAt(a, result)
	if fail != nil {
		return fail
	}
	top, ok := moment.Top()
	if !ok {
		return &AssertionError{
			Type:     AssertMomentTop,
			Expected: fmt.Sprintf("top of %s@%d is %s", a.Branch, a.Index, a.Value),
			Actual:   "moment stack is empty",
			Trace:    result.Trace,
		}
	}
	if got := ir.Format(top); got != a.Value {
		return &AssertionError{
			Type:     AssertMomentTop,
			Expected: fmt.Sprintf("top of %s@%d is %s", a.Branch, a.Index, a.Value),
			Actual:   got,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertParadox(a *Assertion, result *Result) error {
	moment, fail := momentAt(a, result)
	if fail != nil {
		return fail
	}
	if moment.Paradox() != a.Flag {
		return &AssertionError{
			Type:     AssertParadox,
			Expected: fmt.Sprintf("paradox flag of %s@%d is %t", a.Branch, a.Index, a.Flag),
			Actual:   fmt.Sprintf("%t", moment.Paradox()),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertBranchLength(a *Assertion, result *Result) error {
	branch, ok := result.Timeline.Branch(a.Branch)
	if !ok {
		return &AssertionError{
			Type:     AssertBranchLength,
			Expected: fmt.Sprintf("branch %q exists", a.Branch),
			Actual:   "no such branch",
			Trace:    result.Trace,
		}
	}
	if branch.Len() != a.Length {
		return &AssertionError{
			Type:     AssertBranchLength,
			Expected: fmt.Sprintf("branch %q has %d moment(s)", a.Branch, a.Length),
			Actual:   fmt.Sprintf("%d moment(s)", branch.Len()),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertActive(a *Assertion, result *Result) error {
	gotBranch := result.Timeline.ActiveBranch()
	gotIndex := result.Timeline.ActiveIndex()
	if gotBranch != a.Branch || gotIndex != a.Index {
		return &AssertionError{
			Type:     AssertActive,
			Expected: fmt.Sprintf("active position %s@%d", a.Branch, a.Index),
			Actual:   fmt.Sprintf("%s@%d", gotBranch, gotIndex),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertStable(a *Assertion, result *Result) error {
	if result.Timeline.Stable() != a.Flag {
		return &AssertionError{
			Type:     AssertStable,
			Expected: fmt.Sprintf("timeline stable == %t", a.Flag),
			Actual:   fmt.Sprintf("%t", result.Timeline.Stable()),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceOrder checks that ops appear in the trace in the given order.
// Intervening operations are allowed.
func assertTraceOrder(a *Assertion, result *Result) error {
	next := 0
	for _, ev := range result.Trace {
		if next < len(a.Ops) && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", a.Ops),
			Actual:   fmt.Sprintf("matched %d of %d, next missing: %s", next, len(a.Ops), a.Ops[next]),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertTraceCount(a *Assertion, result *Result) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("op %q appears %d time(s)", a.Op, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
