package engine

import (
	"log/slog"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// TraceEvent records one temporal operation for diagnostics, golden
// comparison, and the verbose CLI mode.
type TraceEvent struct {
	// Seq is the logical clock stamp; strictly increasing per Timeline.
	Seq int64 `json:"seq"`

	// Op is the temporal operation name ("tick", "send", "merge", ...).
	Op string `json:"op"`

	// Branch is the active branch after the operation.
	Branch string `json:"branch"`

	// Moment is the active moment index after the operation.
	Moment int `json:"moment"`

	// Detail carries operation-specific context (target branch, resolved
	// value, steps), empty when there is none.
	Detail string `json:"detail,omitempty"`

	// StackHash is the content hash of the active moment's recorded stack,
	// empty when the branch has no moments yet.
	StackHash string `json:"stack_hash,omitempty"`
}

// Tracer observes temporal operations. Implementations must not mutate the
// timeline; they receive already-copied data.
type Tracer interface {
	Trace(TraceEvent)
}

// NopTracer discards all events. It is the default.
type NopTracer struct{}

// Trace implements Tracer.
func (NopTracer) Trace(TraceEvent) {}

// SlogTracer logs every temporal operation at Debug level.
type SlogTracer struct {
	Logger *slog.Logger
}

// Trace implements Tracer.
func (t SlogTracer) Trace(ev TraceEvent) {
	t.Logger.Debug("temporal op",
		"seq", ev.Seq,
		"op", ev.Op,
		"branch", ev.Branch,
		"moment", ev.Moment,
		"detail", ev.Detail,
	)
}

// Collector accumulates events in order; used by the conformance harness
// for golden trace comparison.
type Collector struct {
	Events []TraceEvent
}

// Trace implements Tracer.
func (c *Collector) Trace(ev TraceEvent) {
	c.Events = append(c.Events, ev)
}

// stackHashOf computes the content hash of a moment's stack, or "" when the
// encoding fails (blocks always encode, so this is effectively total).
func stackHashOf(branch string, index int, stack []ir.Value) string {
	h, err := ir.MomentHash(branch, index, stack)
	if err != nil {
		return ""
	}
	return h
}
