package harness

import (
	"fmt"

	"github.com/chronostack-lang/chronostack/internal/compiler"
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
)

// Result captures everything a scenario run produced: the final stack, the
// timeline in its final state, the full operation trace, and the runtime
// error if the program failed.
type Result struct {
	Stack    []ir.Value
	Timeline *engine.Timeline
	Trace    []engine.TraceEvent
	Err      error
}

// Run parses and executes a scenario's program against a fresh timeline,
// collecting the full temporal trace. Parse errors are returned directly;
// runtime errors are captured in the Result so assertions can inspect them.
func Run(scenario *Scenario) (*Result, error) {
	program, err := compiler.ParseSource(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	collector := &engine.Collector{}
	timeline := engine.NewTimeline(engine.WithTracer(collector))

	stack, runErr := engine.Execute(program, timeline)

	return &Result{
		Stack:    stack,
		Timeline: timeline,
		Trace:    collector.Events,
		Err:      runErr,
	}, nil
}
