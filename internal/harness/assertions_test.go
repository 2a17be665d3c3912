package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runProgram(t *testing.T, program string) *Result {
	t.Helper()
	result, err := Run(&Scenario{Name: "t", Description: "t", Program: program})
	require.NoError(t, err)
	return result
}

func TestCheckStackMismatch(t *testing.T) {
	result := runProgram(t, "1 2 +")
	err := Check(&Scenario{
		Name:        "t",
		Description: "t",
		Program:     "1 2 +",
		Stack:       []string{"4"},
	}, result)
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "stack", ae.Type)
	assert.Contains(t, ae.Actual, "[3]")
}

func TestCheckExpectedErrorButSucceeded(t *testing.T) {
	result := runProgram(t, "1 2 +")
	err := Check(&Scenario{
		Name:        "t",
		Description: "t",
		Program:     "1 2 +",
		Error:       "TYPE_MISMATCH",
	}, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program succeeded")
}

func TestCheckWrongErrorCode(t *testing.T) {
	result := runProgram(t, "1 0 /")
	err := Check(&Scenario{
		Name:        "t",
		Description: "t",
		Program:     "1 0 /",
		Error:       "TYPE_MISMATCH",
	}, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIVISION_BY_ZERO")
}

func TestCheckUnexpectedRuntimeError(t *testing.T) {
	result := runProgram(t, "1 0 /")
	err := Check(&Scenario{
		Name:        "t",
		Description: "t",
		Program:     "1 0 /",
		Stack:       []string{"1"},
	}, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime error")
}

func TestAssertMomentTop(t *testing.T) {
	result := runProgram(t, "10 tick 20 tick")

	ok := &Assertion{Type: AssertMomentTop, Branch: "main", Index: 1, Value: "20"}
	assert.NoError(t, checkAssertion(ok, result))

	wrongValue := &Assertion{Type: AssertMomentTop, Branch: "main", Index: 1, Value: "21"}
	assert.Error(t, checkAssertion(wrongValue, result))

	noBranch := &Assertion{Type: AssertMomentTop, Branch: "ghost", Index: 0, Value: "10"}
	err := checkAssertion(noBranch, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such branch")

	noMoment := &Assertion{Type: AssertMomentTop, Branch: "main", Index: 5, Value: "10"}
	err = checkAssertion(noMoment, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 moment(s)")
}

func TestAssertParadoxAndStable(t *testing.T) {
	result := runProgram(t, "10 tick 20 tick 99 1 send")

	assert.NoError(t, checkAssertion(&Assertion{Type: AssertParadox, Branch: "main", Index: 0, Flag: true}, result))
	assert.Error(t, checkAssertion(&Assertion{Type: AssertParadox, Branch: "main", Index: 0, Flag: false}, result))
	assert.NoError(t, checkAssertion(&Assertion{Type: AssertStable, Flag: false}, result))
	assert.Error(t, checkAssertion(&Assertion{Type: AssertStable, Flag: true}, result))
}

func TestAssertTraceOrder(t *testing.T) {
	result := runProgram(t, "1 tick 2 tick 1 echo")

	inOrder := &Assertion{Type: AssertTraceOrder, Ops: []string{"tick", "echo"}}
	assert.NoError(t, checkAssertion(inOrder, result))

	outOfOrder := &Assertion{Type: AssertTraceOrder, Ops: []string{"echo", "tick", "tick"}}
	err := checkAssertion(outOfOrder, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next missing")
}

func TestAssertTraceCount(t *testing.T) {
	result := runProgram(t, "1 tick 2 tick")

	assert.NoError(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "tick", Count: 2}, result))
	assert.NoError(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "merge", Count: 0}, result))
	assert.Error(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "tick", Count: 3}, result))
}

func TestAssertionErrorIncludesTrace(t *testing.T) {
	result := runProgram(t, "1 tick")
	err := checkAssertion(&Assertion{Type: AssertStable, Flag: false}, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace:")
	assert.Contains(t, err.Error(), "tick")
}
