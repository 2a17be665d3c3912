package engine

import "github.com/chronostack-lang/chronostack/internal/ir"

// Moment is a recorded snapshot of the data stack at one tick. Once
// recorded it changes only through a send/merge overwrite (which flips the
// paradox flag) or a ripple (which does not).
type Moment struct {
	stack    []ir.Value
	index    int
	paradox  bool
	resolved ir.Value // fixed point chosen during resolution, nil if none
}

func newMoment(index int, stack []ir.Value) *Moment {
	return &Moment{index: index, stack: ir.CopyStack(stack)}
}

// Index returns the moment's position within its branch.
func (m *Moment) Index() int { return m.index }

// Paradox reports whether this moment was ever the target of a conflicting
// mutation that has not been settled by paradox!.
func (m *Moment) Paradox() bool { return m.paradox }

// Resolved returns the value chosen by paradox resolution, if any.
func (m *Moment) Resolved() (ir.Value, bool) {
	if m.resolved == nil {
		return nil, false
	}
	return m.resolved, true
}

// StackCopy returns an independent copy of the recorded stack.
func (m *Moment) StackCopy() []ir.Value { return ir.CopyStack(m.stack) }

// StackLen returns the recorded stack depth.
func (m *Moment) StackLen() int { return len(m.stack) }

// Top returns the top recorded value, if the stack is non-empty.
func (m *Moment) Top() (ir.Value, bool) {
	if len(m.stack) == 0 {
		return nil, false
	}
	return m.stack[len(m.stack)-1], true
}

func (m *Moment) setTop(v ir.Value) {
	if len(m.stack) == 0 {
		m.stack = append(m.stack, v)
		return
	}
	m.stack[len(m.stack)-1] = v
}

func (m *Moment) clone(index int) *Moment {
	return &Moment{
		stack:    ir.CopyStack(m.stack),
		index:    index,
		paradox:  m.paradox,
		resolved: m.resolved,
	}
}

// Branch is a named, append-growing sequence of moments, optionally forked
// from a parent branch at a point in time.
type Branch struct {
	name      string
	moments   []*Moment
	parent    string // parent branch name, "" for the root branch
	forkIndex int
	forkLen   int // moments copied from the parent at fork time
	hasParent bool
}

// Name returns the branch's unique identifier.
func (b *Branch) Name() string { return b.name }

// Len returns the number of recorded moments.
func (b *Branch) Len() int { return len(b.moments) }

// Moment returns the moment at index i, if it exists.
func (b *Branch) Moment(i int) (*Moment, bool) {
	if i < 0 || i >= len(b.moments) {
		return nil, false
	}
	return b.moments[i], true
}

// Parent returns the (parent name, fork index) pair, and whether this
// branch was forked at all.
func (b *Branch) Parent() (string, int, bool) {
	return b.parent, b.forkIndex, b.hasParent
}

// ParadoxCount returns the number of currently-paradoxical moments.
func (b *Branch) ParadoxCount() int {
	n := 0
	for _, m := range b.moments {
		if m.paradox {
			n++
		}
	}
	return n
}
