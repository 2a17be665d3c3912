package engine

import (
	"math"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// Resolver defaults. Both are tunable through ResolverConfig; tests and the
// CUE config override them.
const (
	// DefaultEpsilon is the numeric convergence tolerance.
	DefaultEpsilon = 1e-9

	// DefaultMaxIterations bounds the fixed-point search. The bound is the
	// only termination mechanism the resolver needs: iteration is pure
	// computation, never I/O.
	DefaultMaxIterations = 50
)

// ResolverConfig tunes the fixed-point search.
type ResolverConfig struct {
	Epsilon       float64
	MaxIterations int
}

// DefaultResolverConfig returns the documented defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{Epsilon: DefaultEpsilon, MaxIterations: DefaultMaxIterations}
}

// Resolution is the outcome of a fixed-point search over a conflicted span.
type Resolution struct {
	// Value is the self-consistent value found for the span, or the
	// best-effort value when no fixed point converged.
	Value ir.Value

	// Chain holds one value per moment in the span [lo, hi]: the converged
	// (or best-effort) propagation of Value through the recorded deltas.
	Chain []ir.Value

	// Converged reports whether a true fixed point was found within the
	// iteration bound.
	Converged bool

	// Iterations is the number of iterations performed.
	Iterations int
}

// delta is one step of the value-producing relation recorded between two
// consecutive moments: additive for numeric top pairs, replacement
// otherwise. fallback carries the recorded downstream top for the case
// where an additive delta is applied to a non-numeric candidate.
type delta struct {
	additive bool
	offset   float64
	fallback ir.Value // recorded top of the downstream moment, may be nil
}

// Resolve runs the bounded fixed-point search for a conflicted span.
//
// recorded holds the pre-conflict top values of the moments in the span,
// oldest first; a nil entry marks a moment whose stack was empty. sent is
// the value written into the oldest moment. Resolve is pure: it performs no
// timeline mutation and always terminates within cfg.MaxIterations.
func Resolve(recorded []ir.Value, sent ir.Value, cfg ResolverConfig) Resolution {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}

	deltas := recordDeltas(recorded)

	// Iterate v_{k+1} = R(v_k) from the sent value, keeping every iterate
	// for the stability fallback.
	iterates := []ir.Value{sent}
	v := sent
	iterations := 0
	for k := 0; k < cfg.MaxIterations; k++ {
		iterations = k + 1
		next := propagate(v, deltas)
		if distance(next, v) < cfg.Epsilon {
			return Resolution{
				Value:      next,
				Chain:      chainOf(next, deltas),
				Converged:  true,
				Iterations: iterations,
			}
		}
		v = next
		iterates = append(iterates, v)
	}

	// No fixed point: stability heuristic. Pick the iterate minimizing
	// |R(v) - v|; ties go to the earliest iterate, for determinism.
	best := iterates[0]
	bestDist := distance(propagate(best, deltas), best)
	for _, cand := range iterates[1:] {
		d := distance(propagate(cand, deltas), cand)
		if d < bestDist {
			best, bestDist = cand, d
		}
	}
	return Resolution{
		Value:      best,
		Chain:      chainOf(best, deltas),
		Converged:  false,
		Iterations: iterations,
	}
}

// recordDeltas approximates the value-producing relation between moments by
// the already-recorded top-of-stack deltas. No source instructions are
// re-executed: the snapshots already captured the outcome of the real
// instruction stream.
func recordDeltas(recorded []ir.Value) []delta {
	if len(recorded) < 2 {
		return nil
	}
	deltas := make([]delta, len(recorded)-1)
	for i := 0; i < len(recorded)-1; i++ {
		from, to := recorded[i], recorded[i+1]
		fromNum, fromOK := from.(ir.Number)
		toNum, toOK := to.(ir.Number)
		if fromOK && toOK {
			deltas[i] = delta{additive: true, offset: float64(toNum) - float64(fromNum), fallback: to}
			continue
		}
		deltas[i] = delta{fallback: to}
	}
	return deltas
}

// propagate computes R(v): the far end of the chain seeded with v.
func propagate(v ir.Value, deltas []delta) ir.Value {
	for _, d := range deltas {
		v = applyDelta(v, d)
	}
	return v
}

// chainOf computes the full propagation chain seeded with v, one value per
// moment in the span.
func chainOf(v ir.Value, deltas []delta) []ir.Value {
	chain := make([]ir.Value, len(deltas)+1)
	chain[0] = v
	for i, d := range deltas {
		v = applyDelta(v, d)
		chain[i+1] = v
	}
	return chain
}

func applyDelta(v ir.Value, d delta) ir.Value {
	if d.additive {
		if n, ok := v.(ir.Number); ok {
			return ir.NewNumber(float64(n) + d.offset)
		}
		// Additive delta over a non-numeric candidate degrades to the
		// recorded downstream value.
		return d.fallback
	}
	if d.fallback == nil {
		// The downstream moment had an empty stack; the candidate passes
		// through unchanged.
		return v
	}
	return d.fallback
}

// distance measures how far a candidate is from being a fixed point.
// Numeric pairs use absolute difference; other pairs are 0 when equal and
// unreachable otherwise.
func distance(a, b ir.Value) float64 {
	an, aOK := a.(ir.Number)
	bn, bOK := b.(ir.Number)
	if aOK && bOK {
		return math.Abs(float64(an) - float64(bn))
	}
	if a == nil && b == nil {
		return 0
	}
	if a == nil || b == nil {
		return math.Inf(1)
	}
	if ir.Equal(a, b) {
		return 0
	}
	return math.Inf(1)
}
