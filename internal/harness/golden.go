package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/chronostack-lang/chronostack/internal/engine"
)

// TraceSnapshot is the golden-file representation of a scenario's temporal
// trace. Stack hashes are omitted so golden files stay hand-auditable.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Trace        []goldenEvent `json:"trace"`
}

// goldenEvent mirrors engine.TraceEvent minus the stack hash.
type goldenEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Branch string `json:"branch"`
	Moment int    `json:"moment"`
	Detail string `json:"detail,omitempty"`
}

// RunWithGolden executes a scenario and compares its temporal trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-run result's trace against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        goldenTrace(result.Trace),
	}

	traceJSON, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}

func goldenTrace(events []engine.TraceEvent) []goldenEvent {
	out := make([]goldenEvent, len(events))
	for i, ev := range events {
		out[i] = goldenEvent{
			Seq:    ev.Seq,
			Op:     ev.Op,
			Branch: ev.Branch,
			Moment: ev.Moment,
			Detail: ev.Detail,
		}
	}
	return out
}
