package engine

import (
	"fmt"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// MainBranch is the name of the root branch every timeline starts with.
const MainBranch = "main"

// Timeline owns all branches and tracks the active branch and moment. One
// Timeline exists per running program or session; only the Executor mutates
// it, strictly sequentially.
//
// INVARIANTS:
//   - Branch moment indices are contiguous from 0 at every observable point
//   - activeIndex is in [0, active.Len()], and equals Len() only before the
//     first tick of an empty branch
//   - Moments never alias: every stack crossing the Timeline boundary is
//     copied in and copied out
type Timeline struct {
	branches map[string]*Branch
	order    []string // creation order, for deterministic enumeration
	active   string
	index    int

	resolver ResolverConfig
	clock    *Clock
	tracer   Tracer
}

// TimelineOption configures a Timeline.
type TimelineOption func(*Timeline)

// WithResolverConfig overrides the paradox resolver's tolerance and
// iteration bound.
func WithResolverConfig(cfg ResolverConfig) TimelineOption {
	return func(t *Timeline) {
		t.resolver = cfg
	}
}

// WithTracer installs a tracer for temporal operations.
func WithTracer(tr Tracer) TimelineOption {
	return func(t *Timeline) {
		t.tracer = tr
	}
}

// NewTimeline creates a timeline holding a single empty "main" branch.
func NewTimeline(opts ...TimelineOption) *Timeline {
	t := &Timeline{
		branches: map[string]*Branch{MainBranch: {name: MainBranch}},
		order:    []string{MainBranch},
		active:   MainBranch,
		resolver: DefaultResolverConfig(),
		clock:    NewClock(),
		tracer:   NopTracer{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ActiveBranch returns the name of the branch receiving new moments.
func (t *Timeline) ActiveBranch() string { return t.active }

// ActiveIndex returns the moment index the executor is standing on.
func (t *Timeline) ActiveIndex() int { return t.index }

// Active returns the active branch.
func (t *Timeline) Active() *Branch { return t.branches[t.active] }

// Branch returns a branch by name.
func (t *Timeline) Branch(name string) (*Branch, bool) {
	b, ok := t.branches[name]
	return b, ok
}

// Branches returns all branches in creation order.
func (t *Timeline) Branches() []*Branch {
	out := make([]*Branch, len(t.order))
	for i, name := range t.order {
		out[i] = t.branches[name]
	}
	return out
}

// Stable reports whether the active branch has zero paradoxical moments.
func (t *Timeline) Stable() bool {
	return t.Active().ParadoxCount() == 0
}

func (t *Timeline) errorf(code RuntimeErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Branch:  t.active,
		Moment:  t.index,
	}
}

func (t *Timeline) trace(op, detail string) {
	b := t.Active()
	var hash string
	if m, ok := b.Moment(t.index); ok {
		hash = stackHashOf(b.name, m.index, m.stack)
	}
	t.tracer.Trace(TraceEvent{
		Seq:       t.clock.Next(),
		Op:        op,
		Branch:    t.active,
		Moment:    t.index,
		Detail:    detail,
		StackHash: hash,
	})
}

// Tick records the current working stack as a new moment and advances time.
// A tick after a rewind truncates the stale future first, keeping indices
// contiguous; that truncation is the only deletion in the system. Never
// fails.
func (t *Timeline) Tick(stack []ir.Value) {
	b := t.Active()
	if len(b.moments) > t.index+1 {
		b.moments = b.moments[:t.index+1]
	}
	m := newMoment(len(b.moments), stack)
	b.moments = append(b.moments, m)
	t.index = m.index
	t.trace("tick", "")
}

// Rewind moves the active index back n moments (clamped at 0) and returns a
// copy of that moment's stack for the executor to adopt. Later moments stay
// addressable by peek-future until the next tick truncates them. On a
// branch with no recorded moments there is nothing to restore; ok is false
// and the executor keeps its working stack.
func (t *Timeline) Rewind(n int) (stack []ir.Value, ok bool) {
	target := t.index - n
	if target < 0 {
		target = 0
	}
	t.index = target
	defer t.trace("rewind", fmt.Sprintf("steps=%d", n))
	if m, exists := t.Active().Moment(target); exists {
		return m.StackCopy(), true
	}
	return nil, false
}

// Echo returns a copy of the top value n moments back. Echo(0) reads the
// current working stack, which may have advanced past the recorded moment.
func (t *Timeline) Echo(n int, current []ir.Value) (ir.Value, error) {
	if n == 0 {
		if len(current) == 0 {
			return nil, t.errorf(ErrCodeOutOfRange, "echo 0 on empty stack")
		}
		t.trace("echo", "steps=0")
		return current[len(current)-1], nil
	}
	if n < 0 || n > t.index {
		return nil, t.errorf(ErrCodeOutOfRange, "echo %d exceeds history depth %d", n, t.index)
	}
	m, ok := t.Active().Moment(t.index - n)
	if !ok {
		return nil, t.errorf(ErrCodeOutOfRange, "echo %d: no moment at index %d", n, t.index-n)
	}
	top, ok := m.Top()
	if !ok {
		return nil, t.errorf(ErrCodeOutOfRange, "echo %d: moment %d has an empty stack", n, m.index)
	}
	t.trace("echo", fmt.Sprintf("steps=%d", n))
	return top, nil
}

// PeekFuture returns a copy of the top value n moments ahead without moving
// the active index. A future moment exists only after a rewind that has not
// yet been truncated by a tick.
func (t *Timeline) PeekFuture(n int) (ir.Value, error) {
	if n < 0 {
		return nil, t.errorf(ErrCodeNoSuchMoment, "peek-future %d: negative steps", n)
	}
	m, ok := t.Active().Moment(t.index + n)
	if !ok {
		return nil, t.errorf(ErrCodeNoSuchMoment, "peek-future %d: no recorded moment at index %d", n, t.index+n)
	}
	top, ok := m.Top()
	if !ok {
		return nil, t.errorf(ErrCodeNoSuchMoment, "peek-future %d: moment %d has an empty stack", n, m.index)
	}
	t.trace("peek-future", fmt.Sprintf("steps=%d", n))
	return top, nil
}

// Send writes a value onto the top of the moment n steps back. A write that
// matches the recorded top is trivially consistent; anything else is a
// causality conflict handed to the resolver. Returns whether a conflict was
// resolved.
func (t *Timeline) Send(value ir.Value, n int) (bool, error) {
	if n < 0 || n > t.index {
		return false, t.errorf(ErrCodeOutOfRange, "send %d exceeds history depth %d", n, t.index)
	}
	lo := t.index - n
	b := t.Active()
	target, ok := b.Moment(lo)
	if !ok {
		return false, t.errorf(ErrCodeOutOfRange, "send %d: no moment at index %d", n, lo)
	}

	top, hasTop := target.Top()
	if !hasTop {
		// No prior observer computed from a top that never existed: the
		// write lands without conflict.
		target.setTop(value)
		t.trace("send", fmt.Sprintf("steps=%d trivial", n))
		return false, nil
	}
	if ir.Equal(top, value) {
		t.trace("send", fmt.Sprintf("steps=%d trivial", n))
		return false, nil
	}

	// Causality conflict: the target already influenced everything between
	// lo and the active index. Capture the recorded tops before editing,
	// then search for a self-consistent continuation.
	recorded := t.recordedTops(lo, t.index)
	target.paradox = true
	target.setTop(value)

	res := Resolve(recorded, value, t.resolver)
	t.applyChain(b, lo, res.Chain, recorded)
	target.resolved = res.Value

	t.trace("send", fmt.Sprintf("steps=%d resolved=%s converged=%t", n, ir.Format(res.Value), res.Converged))
	return true, nil
}

// recordedTops snapshots the top values of moments lo..hi, nil marking an
// empty stack.
func (t *Timeline) recordedTops(lo, hi int) []ir.Value {
	b := t.Active()
	tops := make([]ir.Value, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		m, ok := b.Moment(i)
		if !ok {
			tops = append(tops, nil)
			continue
		}
		top, hasTop := m.Top()
		if !hasTop {
			tops = append(tops, nil)
			continue
		}
		tops = append(tops, top)
	}
	return tops
}

// applyChain overwrites the tops of moments lo.. with the resolved chain.
// Downstream moments whose recomputed value differs from what was recorded
// become paradoxical themselves; ones the chain reproduces stay clean. The
// moment at lo keeps paradox=true as the historical record of the edit.
func (t *Timeline) applyChain(b *Branch, lo int, chain []ir.Value, recorded []ir.Value) {
	for i, v := range chain {
		if v == nil {
			continue
		}
		m, ok := b.Moment(lo + i)
		if !ok {
			continue
		}
		m.setTop(v)
		if i > 0 && recorded[i] != nil && !ir.Equal(v, recorded[i]) {
			m.paradox = true
		}
	}
}

// Fork creates a new branch from the active one: moments 0..activeIndex are
// copied, and the parent back-reference records the fork point. The new
// branch becomes active; the active index does not move.
func (t *Timeline) Fork(name string) error {
	if _, exists := t.branches[name]; exists {
		return t.errorf(ErrCodeDuplicateBranch, "branch %q already exists", name)
	}
	src := t.Active()

	nb := &Branch{
		name:      name,
		parent:    t.active,
		forkIndex: t.index,
		hasParent: true,
	}
	limit := t.index
	if limit >= len(src.moments) {
		limit = len(src.moments) - 1
	}
	for i := 0; i <= limit; i++ {
		nb.moments = append(nb.moments, src.moments[i].clone(i))
	}
	nb.forkLen = len(nb.moments)

	t.branches[name] = nb
	t.order = append(t.order, name)
	t.active = name
	t.trace("branch", fmt.Sprintf("from=%s fork=%d", nb.parent, nb.forkIndex))
	return nil
}

// Merge appends the active branch's post-fork moments onto the target
// branch. Positions where the target advanced independently since the fork
// collide; each collision is a causality conflict resolved pairwise, the
// target's value playing the sent-from-future role. Afterwards the target
// becomes the active branch with its last moment active.
func (t *Timeline) Merge(targetName string) error {
	dst, ok := t.branches[targetName]
	if !ok {
		return t.errorf(ErrCodeNoSuchBranch, "merge target %q does not exist", targetName)
	}
	src := t.Active()
	if src == dst {
		t.trace("merge", "self")
		return nil
	}

	// Post-fork moments begin after the ones copied at fork time. The count
	// is recorded separately from the fork index: a branch forked before the
	// parent's first tick copied zero moments, so everything it ticked since
	// is post-fork material even though the fork index is also zero.
	start := 0
	if src.hasParent {
		start = src.forkLen
	}

	conflicts := 0
	for i := start; i < len(src.moments); i++ {
		sm := src.moments[i]
		if i < len(dst.moments) {
			if t.resolvePair(dst.moments[i], sm) {
				conflicts++
			}
			continue
		}
		dst.moments = append(dst.moments, sm.clone(len(dst.moments)))
	}

	t.active = targetName
	if len(dst.moments) == 0 {
		t.index = 0
	} else {
		t.index = len(dst.moments) - 1
	}
	t.trace("merge", fmt.Sprintf("into=%s conflicts=%d", targetName, conflicts))
	return nil
}

// resolvePair settles one merge collision. Structurally this is a send
// conflict over a two-moment span: the incoming (source) value is the
// recorded one, the existing (destination) value plays the part of the
// value sent from the future. The winner's stack stays on the destination
// moment. Reports whether the pair actually conflicted.
func (t *Timeline) resolvePair(dstM, srcM *Moment) bool {
	if ir.EqualStacks(dstM.stack, srcM.stack) {
		return false
	}

	dstTop, dstHas := dstM.Top()
	srcTop, srcHas := srcM.Top()
	if !dstHas && !srcHas {
		// Stacks differ below empty tops; keep the destination, no value
		// to arbitrate over.
		return false
	}
	seed := dstTop
	if !dstHas {
		seed = srcTop
	}

	res := Resolve([]ir.Value{srcTop, dstTop}, seed, t.resolver)
	dstM.paradox = true
	dstM.resolved = res.Value
	dstM.setTop(res.Value)
	return true
}

// TemporalFold folds a binary operator across the top value of every moment
// from index 0 through the active index, left to right, starting from the
// operator's identity. Moments with empty stacks contribute nothing.
func (t *Timeline) TemporalFold(op string) (ir.Value, error) {
	identity, ok := foldIdentity(op)
	if !ok {
		return nil, t.errorf(ErrCodeUnfoldableOperator, "operator %q has no fold identity", op)
	}

	acc := identity
	b := t.Active()
	for i := 0; i <= t.index && i < len(b.moments); i++ {
		top, hasTop := b.moments[i].Top()
		if !hasTop {
			continue
		}
		next, err := applyBinary(op, acc, top)
		if err != nil {
			return nil, t.attach(err)
		}
		acc = next
	}
	t.trace("temporal-fold", fmt.Sprintf("op=%s", op))
	return acc, nil
}

// Ripple applies op(existing_top, value) to the top of every moment
// strictly after the active index, overwriting in place. Information moves
// forward in time, so this is deliberate propagation, not a causality
// conflict: no paradox is recorded and no resolution runs.
func (t *Timeline) Ripple(op string, value ir.Value) error {
	b := t.Active()
	for i := t.index + 1; i < len(b.moments); i++ {
		m := b.moments[i]
		top, hasTop := m.Top()
		if !hasTop {
			continue
		}
		next, err := applyBinary(op, top, value)
		if err != nil {
			return t.attach(err)
		}
		m.setTop(next)
	}
	t.trace("ripple", fmt.Sprintf("op=%s value=%s", op, ir.Format(value)))
	return nil
}

// ResolveAll forces immediate resolution of every currently-paradoxical
// moment in the active branch and clears the flags, returning how many
// moments were settled. After ResolveAll the branch is stable again.
func (t *Timeline) ResolveAll() int {
	b := t.Active()
	count := 0
	for _, m := range b.moments {
		if !m.paradox {
			continue
		}
		if m.resolved == nil {
			hi := t.index
			if hi >= len(b.moments) {
				hi = len(b.moments) - 1
			}
			if hi < m.index {
				hi = m.index
			}
			recorded := t.recordedTops(m.index, hi)
			seed := recorded[0]
			if seed == nil {
				seed = ir.NewNumber(0)
			}
			res := Resolve(recorded, seed, t.resolver)
			m.resolved = res.Value
		}
		m.paradox = false
		count++
	}
	t.trace("paradox!", fmt.Sprintf("settled=%d", count))
	return count
}

// attach fills in timeline context on operator-level errors that bubbled up
// from the binary table.
func (t *Timeline) attach(err error) error {
	if re, ok := err.(*RuntimeError); ok && re.Branch == "" {
		re.Branch = t.active
		re.Moment = t.index
	}
	return err
}
