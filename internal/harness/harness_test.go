package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronostack-lang/chronostack/internal/engine"
)

// TestConformanceScenarios runs every testdata scenario, checks its
// assertions, and pins the temporal trace against its golden file.
func TestConformanceScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(scenario)
			require.NoError(t, err)
			require.NoError(t, Check(scenario, result))
			require.NoError(t, AssertGolden(t, scenario.Name, result))
		})
	}
}

func TestRunParseError(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "broken",
		Description: "unclosed block",
		Program:     "[ 1 2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunCapturesRuntimeError(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "underflow",
		Description: "operator with no operands",
		Program:     "+",
	})
	require.NoError(t, err)
	require.Error(t, result.Err)
	assert.Equal(t, engine.ErrCodeStackUnderflow, engine.CodeOf(result.Err))
	assert.Empty(t, result.Trace)
}

func TestRunCollectsTrace(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "trace",
		Description: "two ticks",
		Program:     "1 tick 2 tick",
	})
	require.NoError(t, err)
	require.NoError(t, result.Err)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "tick", result.Trace[0].Op)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Equal(t, 1, result.Trace[1].Moment)
}
