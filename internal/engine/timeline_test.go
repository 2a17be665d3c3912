package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

func nums(vs ...float64) []ir.Value {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = ir.NewNumber(v)
	}
	return out
}

func requireContiguous(t *testing.T, tl *Timeline) {
	t.Helper()
	for _, b := range tl.Branches() {
		for i := 0; i < b.Len(); i++ {
			m, ok := b.Moment(i)
			require.True(t, ok)
			require.Equal(t, i, m.Index(), "branch %s moment at slot %d", b.Name(), i)
		}
	}
}

func TestTimeline_New_StartsOnMain(t *testing.T) {
	tl := NewTimeline()

	assert.Equal(t, MainBranch, tl.ActiveBranch())
	assert.Equal(t, 0, tl.ActiveIndex())
	assert.Equal(t, 0, tl.Active().Len())
	assert.True(t, tl.Stable())
}

func TestTimeline_Tick_AppendsAndAdvances(t *testing.T) {
	tl := NewTimeline()

	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	assert.Equal(t, 1, tl.ActiveIndex())
	assert.Equal(t, 2, tl.Active().Len())
	requireContiguous(t, tl)
}

func TestTimeline_Tick_DoesNotAliasCallerStack(t *testing.T) {
	tl := NewTimeline()
	working := nums(1, 2)
	tl.Tick(working)

	working[0] = ir.NewNumber(99)

	m, ok := tl.Active().Moment(0)
	require.True(t, ok)
	assert.Equal(t, nums(1, 2), m.StackCopy())
}

func TestTimeline_Rewind_RestoresRecordedStack(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))
	tl.Tick(nums(10, 20, 30))

	restored, ok := tl.Rewind(2)

	require.True(t, ok)
	assert.Equal(t, nums(10), restored)
	assert.Equal(t, 0, tl.ActiveIndex())
	// The future stays addressable until the next tick.
	assert.Equal(t, 3, tl.Active().Len())
}

func TestTimeline_Rewind_ClampsAtZero(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	tl.Tick(nums(1, 2))

	restored, ok := tl.Rewind(100)

	require.True(t, ok)
	assert.Equal(t, nums(1), restored)
	assert.Equal(t, 0, tl.ActiveIndex())
}

func TestTimeline_Rewind_EmptyBranchHasNothingToRestore(t *testing.T) {
	tl := NewTimeline()

	_, ok := tl.Rewind(3)

	assert.False(t, ok)
	assert.Equal(t, 0, tl.ActiveIndex())
}

func TestTimeline_TickAfterRewind_TruncatesStaleFuture(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	tl.Tick(nums(1, 2))
	tl.Tick(nums(1, 2, 3))

	_, ok := tl.Rewind(2)
	require.True(t, ok)
	tl.Tick(nums(1, 7))

	b := tl.Active()
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 1, tl.ActiveIndex())
	m, ok := b.Moment(1)
	require.True(t, ok)
	assert.Equal(t, nums(1, 7), m.StackCopy())
	requireContiguous(t, tl)
}

func TestTimeline_Echo_ReadsPastTops(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	v, err := tl.Echo(1, nums(10, 20))
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(10), v)
}

func TestTimeline_Echo_ZeroReadsWorkingStack(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))

	// The working stack may have advanced past the recorded moment.
	v, err := tl.Echo(0, nums(10, 77))
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(77), v)
}

func TestTimeline_Echo_BeyondHistoryFails(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))

	_, err := tl.Echo(5, nums(10))
	assert.True(t, IsOutOfRange(err))
}

func TestTimeline_PeekFuture_AfterRewind(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	tl.Tick(nums(1, 2))
	tl.Tick(nums(1, 2, 3))
	_, ok := tl.Rewind(2)
	require.True(t, ok)

	v, err := tl.PeekFuture(2)
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(3), v)
	assert.Equal(t, 0, tl.ActiveIndex(), "peek-future must not move the active index")
}

func TestTimeline_PeekFuture_NoFutureFails(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))

	_, err := tl.PeekFuture(1)
	assert.True(t, IsNoSuchMoment(err))
}

func TestTimeline_Send_MatchingValueIsTrivial(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	conflicted, err := tl.Send(ir.NewNumber(10), 1)

	require.NoError(t, err)
	assert.False(t, conflicted)
	assert.True(t, tl.Stable())
}

func TestTimeline_Send_ConflictMarksParadoxAndResolves(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	conflicted, err := tl.Send(ir.NewNumber(99), 1)

	require.NoError(t, err)
	assert.True(t, conflicted)

	m0, ok := tl.Active().Moment(0)
	require.True(t, ok)
	assert.True(t, m0.Paradox())
	top, ok := m0.Top()
	require.True(t, ok)
	assert.Equal(t, ir.NewNumber(99), top)
	resolved, ok := m0.Resolved()
	require.True(t, ok)
	assert.Equal(t, ir.NewNumber(99), resolved)
	assert.False(t, tl.Stable())
}

func TestTimeline_Send_PropagatesDownstream(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	_, err := tl.Send(ir.NewNumber(99), 1)
	require.NoError(t, err)

	// The +10 delta between the recorded tops carries the new value
	// forward, and the changed downstream moment is paradoxical too.
	m1, ok := tl.Active().Moment(1)
	require.True(t, ok)
	top, ok := m1.Top()
	require.True(t, ok)
	assert.Equal(t, ir.NewNumber(109), top)
	assert.True(t, m1.Paradox())
}

func TestTimeline_Send_Deterministic(t *testing.T) {
	run := func() ir.Value {
		tl := NewTimeline()
		tl.Tick(nums(10))
		tl.Tick(nums(10, 20))
		_, err := tl.Send(ir.NewNumber(99), 1)
		require.NoError(t, err)
		m0, _ := tl.Active().Moment(0)
		top, _ := m0.Top()
		return top
	}

	assert.True(t, ir.Equal(run(), run()))
}

func TestTimeline_Send_EmptyTargetStackLandsWithoutConflict(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nil) // a moment recorded from an empty stack
	tl.Tick(nums(5))

	conflicted, err := tl.Send(ir.NewNumber(7), 1)

	require.NoError(t, err)
	assert.False(t, conflicted, "no recorded top means nothing to contradict")

	m0, ok := tl.Active().Moment(0)
	require.True(t, ok)
	assert.False(t, m0.Paradox())
	top, okTop := m0.Top()
	require.True(t, okTop)
	assert.Equal(t, ir.NewNumber(7), top)
	assert.Equal(t, 1, len(m0.StackCopy()))
	assert.True(t, tl.Stable())
}

func TestTimeline_Send_BeyondHistoryFails(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))

	_, err := tl.Send(ir.NewNumber(99), 2)
	assert.True(t, IsOutOfRange(err))
}

func TestTimeline_Fork_CopiesHistoryAndSwitches(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	tl.Tick(nums(1, 2))

	require.NoError(t, tl.Fork("alt"))

	assert.Equal(t, "alt", tl.ActiveBranch())
	assert.Equal(t, 1, tl.ActiveIndex())
	alt := tl.Active()
	assert.Equal(t, 2, alt.Len())
	parent, forkIdx, ok := alt.Parent()
	require.True(t, ok)
	assert.Equal(t, MainBranch, parent)
	assert.Equal(t, 1, forkIdx)
	requireContiguous(t, tl)
}

func TestTimeline_Fork_IsDeepCopy(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	require.NoError(t, tl.Fork("alt"))

	tl.Tick(nums(10, 20))

	main, _ := tl.Branch(MainBranch)
	assert.Equal(t, 1, main.Len(), "ticks on the fork must not touch the parent")
}

func TestTimeline_Fork_DuplicateNameFails(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	require.NoError(t, tl.Fork("alt"))

	err := tl.Fork("alt")
	require.Error(t, err)
	assert.Equal(t, ErrCodeDuplicateBranch, CodeOf(err))
}

func TestTimeline_Merge_UnknownTargetFails(t *testing.T) {
	tl := NewTimeline()

	err := tl.Merge("ghost")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNoSuchBranch, CodeOf(err))
}

func TestTimeline_Merge_ImmediatelyAfterForkIsNoOp(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	require.NoError(t, tl.Fork("alt"))

	require.NoError(t, tl.Merge(MainBranch))

	main, _ := tl.Branch(MainBranch)
	assert.Equal(t, 1, main.Len())
	assert.Equal(t, MainBranch, tl.ActiveBranch())
	assert.Equal(t, 0, tl.ActiveIndex())
	assert.True(t, tl.Stable())
}

func TestTimeline_Merge_FastForwardAppendsNewMoments(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	require.NoError(t, tl.Fork("alt"))
	tl.Tick(nums(1, 5))
	tl.Tick(nums(1, 5, 6))

	require.NoError(t, tl.Merge(MainBranch))

	main, _ := tl.Branch(MainBranch)
	alt, _ := tl.Branch("alt")
	require.Equal(t, alt.Len(), main.Len())
	for i := 0; i < main.Len(); i++ {
		mm, _ := main.Moment(i)
		am, _ := alt.Moment(i)
		assert.True(t, ir.EqualStacks(mm.StackCopy(), am.StackCopy()), "moment %d", i)
	}
	assert.Equal(t, MainBranch, tl.ActiveBranch())
	assert.Equal(t, 2, tl.ActiveIndex())
	requireContiguous(t, tl)
}

func TestTimeline_Merge_ForkBeforeFirstTickCarriesMoments(t *testing.T) {
	tl := NewTimeline()
	require.NoError(t, tl.Fork("x")) // main has no moments yet
	tl.Tick(nums(10))

	require.NoError(t, tl.Merge(MainBranch))

	main, _ := tl.Branch(MainBranch)
	require.Equal(t, 1, main.Len(), "moment ticked after the fork must survive the merge")
	m0, ok := main.Moment(0)
	require.True(t, ok)
	top, okTop := m0.Top()
	require.True(t, okTop)
	assert.Equal(t, ir.NewNumber(10), top)
	assert.Equal(t, MainBranch, tl.ActiveBranch())
	assert.Equal(t, 0, tl.ActiveIndex())
	requireContiguous(t, tl)
}

func TestTimeline_Merge_CollisionResolvesPairwise(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))
	require.NoError(t, tl.Fork("a"))
	tl.Tick(nums(1, 5))
	require.NoError(t, tl.Merge(MainBranch)) // main now has moments 0,1

	_, ok := tl.Rewind(2)
	require.True(t, ok)
	require.NoError(t, tl.Fork("b")) // forks at index 0, copies moment 0 only
	tl.Tick(nums(1, 9))              // b moment 1, colliding with main moment 1

	require.NoError(t, tl.Merge(MainBranch))

	main, _ := tl.Branch(MainBranch)
	assert.Equal(t, 2, main.Len())
	m1, _ := main.Moment(1)
	assert.True(t, m1.Paradox())
	// The destination's value wins the two-point resolution.
	top, okTop := m1.Top()
	require.True(t, okTop)
	assert.Equal(t, ir.NewNumber(5), top)
	resolved, okRes := m1.Resolved()
	require.True(t, okRes)
	assert.Equal(t, ir.NewNumber(5), resolved)
	requireContiguous(t, tl)
}

func TestTimeline_Merge_SelfIsNoOp(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))

	require.NoError(t, tl.Merge(MainBranch))
	assert.Equal(t, 1, tl.Active().Len())
}

func TestTimeline_TemporalFold_SumsHistory(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))
	tl.Tick(nums(10, 20, 30))

	v, err := tl.TemporalFold("+")
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(60), v)
}

func TestTimeline_TemporalFold_SkipsEmptyMoments(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nil)
	tl.Tick(nums(5))

	v, err := tl.TemporalFold("*")
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(50), v)
}

func TestTimeline_TemporalFold_EmptyHistoryYieldsIdentity(t *testing.T) {
	tl := NewTimeline()

	v, err := tl.TemporalFold("+")
	require.NoError(t, err)
	assert.Equal(t, ir.NewNumber(0), v)
}

func TestTimeline_TemporalFold_UnknownOperatorFails(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(1))

	_, err := tl.TemporalFold("-")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnfoldableOperator, CodeOf(err))
}

func TestTimeline_Ripple_RewritesFutureOnly(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))
	tl.Tick(nums(10, 20, 30))
	_, ok := tl.Rewind(2)
	require.True(t, ok)

	require.NoError(t, tl.Ripple("+", ir.NewNumber(100)))

	b := tl.Active()
	m0, _ := b.Moment(0)
	top0, _ := m0.Top()
	assert.Equal(t, ir.NewNumber(10), top0, "the active moment is untouched")
	m1, _ := b.Moment(1)
	top1, _ := m1.Top()
	assert.Equal(t, ir.NewNumber(120), top1)
	m2, _ := b.Moment(2)
	top2, _ := m2.Top()
	assert.Equal(t, ir.NewNumber(130), top2)
	assert.False(t, m1.Paradox(), "ripple is forward propagation, not a paradox")
	assert.True(t, tl.Stable())
}

func TestTimeline_ResolveAll_ClearsParadoxFlags(t *testing.T) {
	tl := NewTimeline()
	tl.Tick(nums(10))
	tl.Tick(nums(10, 20))
	_, err := tl.Send(ir.NewNumber(99), 1)
	require.NoError(t, err)
	require.False(t, tl.Stable())

	settled := tl.ResolveAll()

	assert.Equal(t, 2, settled, "the edited moment and its shifted successor")
	assert.True(t, tl.Stable())
	assert.Equal(t, 0, tl.ResolveAll(), "idempotent once stable")
}

func TestTimeline_Tracer_ObservesTemporalOps(t *testing.T) {
	var col Collector
	tl := NewTimeline(WithTracer(&col))

	tl.Tick(nums(1))
	tl.Tick(nums(1, 2))
	_, ok := tl.Rewind(1)
	require.True(t, ok)

	events := col.Events
	require.Len(t, events, 3)
	assert.Equal(t, "tick", events[0].Op)
	assert.Equal(t, "tick", events[1].Op)
	assert.Equal(t, "rewind", events[2].Op)
	assert.Less(t, events[0].Seq, events[1].Seq)
}
