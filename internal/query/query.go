// Package query provides read-only inspection views over a timeline.
//
// The engine exposes branches and moments as live objects; this package
// flattens them into plain structs that the CLI renderer, the REPL's
// dot-commands, and the trace output consume without touching engine
// internals. Views are snapshots: they do not follow later mutations.
package query

import (
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
)

// MomentInfo describes one recorded moment.
type MomentInfo struct {
	Index       int    `json:"index"`
	Depth       int    `json:"depth"`
	Top         string `json:"top,omitempty"`
	Stack       string `json:"stack"`
	Paradox     bool   `json:"paradox"`
	Resolved    string `json:"resolved,omitempty"`
	HasResolved bool   `json:"has_resolved"`
	Hash        string `json:"hash,omitempty"`
}

// BranchInfo describes one branch and its moments.
type BranchInfo struct {
	Name      string       `json:"name"`
	Parent    string       `json:"parent,omitempty"`
	ForkIndex int          `json:"fork_index"`
	HasParent bool         `json:"has_parent"`
	Active    bool         `json:"active"`
	Paradoxes int          `json:"paradoxes"`
	Moments   []MomentInfo `json:"moments"`
}

// TimelineInfo is the full inspection view.
type TimelineInfo struct {
	ActiveBranch   string       `json:"active_branch"`
	ActiveIndex    int          `json:"active_index"`
	Stable         bool         `json:"stable"`
	TotalMoments   int          `json:"total_moments"`
	TotalParadoxes int          `json:"total_paradoxes"`
	Branches       []BranchInfo `json:"branches"`
}

// Inspect builds the full view of a timeline, branches in creation order.
func Inspect(t *engine.Timeline) TimelineInfo {
	info := TimelineInfo{
		ActiveBranch: t.ActiveBranch(),
		ActiveIndex:  t.ActiveIndex(),
		Stable:       t.Stable(),
	}
	for _, b := range t.Branches() {
		bi := inspectBranch(b, b.Name() == t.ActiveBranch())
		info.TotalMoments += len(bi.Moments)
		info.TotalParadoxes += bi.Paradoxes
		info.Branches = append(info.Branches, bi)
	}
	return info
}

// Branch builds the view of a single branch by name.
func Branch(t *engine.Timeline, name string) (BranchInfo, bool) {
	b, ok := t.Branch(name)
	if !ok {
		return BranchInfo{}, false
	}
	return inspectBranch(b, name == t.ActiveBranch()), true
}

// Moment builds the view of a single moment on the active branch.
func Moment(t *engine.Timeline, index int) (MomentInfo, bool) {
	m, ok := t.Active().Moment(index)
	if !ok {
		return MomentInfo{}, false
	}
	return inspectMoment(t.ActiveBranch(), m), true
}

// Paradoxes lists every currently-paradoxical moment across all branches,
// branch creation order then moment order.
func Paradoxes(t *engine.Timeline) []MomentInfo {
	var out []MomentInfo
	for _, b := range t.Branches() {
		for i := 0; i < b.Len(); i++ {
			m, _ := b.Moment(i)
			if m.Paradox() {
				out = append(out, inspectMoment(b.Name(), m))
			}
		}
	}
	return out
}

func inspectBranch(b *engine.Branch, active bool) BranchInfo {
	parent, forkIndex, hasParent := b.Parent()
	bi := BranchInfo{
		Name:      b.Name(),
		Parent:    parent,
		ForkIndex: forkIndex,
		HasParent: hasParent,
		Active:    active,
		Paradoxes: b.ParadoxCount(),
		Moments:   make([]MomentInfo, 0, b.Len()),
	}
	for i := 0; i < b.Len(); i++ {
		m, _ := b.Moment(i)
		bi.Moments = append(bi.Moments, inspectMoment(b.Name(), m))
	}
	return bi
}

func inspectMoment(branch string, m *engine.Moment) MomentInfo {
	stack := m.StackCopy()
	mi := MomentInfo{
		Index:   m.Index(),
		Depth:   len(stack),
		Stack:   ir.FormatStack(stack),
		Paradox: m.Paradox(),
	}
	if top, ok := m.Top(); ok {
		mi.Top = ir.Format(top)
	}
	if resolved, ok := m.Resolved(); ok {
		mi.Resolved = ir.Format(resolved)
		mi.HasResolved = true
	}
	if h, err := ir.MomentHash(branch, m.Index(), stack); err == nil {
		mi.Hash = h
	}
	return mi
}
