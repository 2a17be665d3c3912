package engine

import "github.com/chronostack-lang/chronostack/internal/ir"

// TimelineSnapshot is a timeline's full persistent state: every branch in
// creation order with every recorded moment. It is the unit the session
// store saves and loads.
type TimelineSnapshot struct {
	Active   string
	Index    int
	Branches []BranchSnapshot
}

// BranchSnapshot mirrors one branch.
type BranchSnapshot struct {
	Name      string
	Parent    string
	ForkIndex int
	ForkLen   int
	HasParent bool
	Moments   []MomentSnapshot
}

// MomentSnapshot mirrors one recorded moment. Resolved is nil when the
// moment was never resolved.
type MomentSnapshot struct {
	Stack    []ir.Value
	Paradox  bool
	Resolved ir.Value
}

// Snapshot captures the timeline's complete state. All stacks are copied;
// the snapshot stays valid however the timeline moves on.
func (t *Timeline) Snapshot() TimelineSnapshot {
	snap := TimelineSnapshot{
		Active:   t.active,
		Index:    t.index,
		Branches: make([]BranchSnapshot, 0, len(t.order)),
	}
	for _, name := range t.order {
		b := t.branches[name]
		bs := BranchSnapshot{
			Name:      b.name,
			Parent:    b.parent,
			ForkIndex: b.forkIndex,
			ForkLen:   b.forkLen,
			HasParent: b.hasParent,
			Moments:   make([]MomentSnapshot, len(b.moments)),
		}
		for i, m := range b.moments {
			bs.Moments[i] = MomentSnapshot{
				Stack:    m.StackCopy(),
				Paradox:  m.paradox,
				Resolved: m.resolved,
			}
		}
		snap.Branches = append(snap.Branches, bs)
	}
	return snap
}

// RestoreTimeline rebuilds a timeline from a snapshot. It rejects snapshots
// whose shape would violate the timeline invariants: duplicate branch names,
// an unknown active branch, or an active index outside the active branch's
// history.
func RestoreTimeline(snap TimelineSnapshot, opts ...TimelineOption) (*Timeline, error) {
	t := NewTimeline(opts...)
	t.branches = make(map[string]*Branch, len(snap.Branches))
	t.order = nil

	for _, bs := range snap.Branches {
		if _, dup := t.branches[bs.Name]; dup {
			return nil, &RuntimeError{
				Code:    ErrCodeDuplicateBranch,
				Message: "snapshot contains branch " + bs.Name + " twice",
			}
		}
		b := &Branch{
			name:      bs.Name,
			parent:    bs.Parent,
			forkIndex: bs.ForkIndex,
			forkLen:   bs.ForkLen,
			hasParent: bs.HasParent,
			moments:   make([]*Moment, len(bs.Moments)),
		}
		for i, ms := range bs.Moments {
			m := newMoment(i, ms.Stack)
			m.paradox = ms.Paradox
			m.resolved = ms.Resolved
			b.moments[i] = m
		}
		t.branches[bs.Name] = b
		t.order = append(t.order, bs.Name)
	}

	active, ok := t.branches[snap.Active]
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeNoSuchBranch,
			Message: "snapshot's active branch " + snap.Active + " is not in the snapshot",
		}
	}
	if snap.Index < 0 || snap.Index > active.Len() {
		return nil, &RuntimeError{
			Code:    ErrCodeOutOfRange,
			Message: "snapshot's active index is outside the active branch",
		}
	}
	t.active = snap.Active
	t.index = snap.Index
	return t, nil
}
