package cli

import (
	"fmt"
	"strings"

	"github.com/chronostack-lang/chronostack/internal/query"
)

// RenderTimeline draws an ASCII view of a timeline: one row per branch,
// one cell per moment, paradoxical moments flagged, the active moment
// bracketed.
//
//	main (0)──(1)──[2]
//	alt  (0)──(1!)──(2)   forked from main@1
func RenderTimeline(info query.TimelineInfo) string {
	var b strings.Builder

	width := 0
	for _, branch := range info.Branches {
		if len(branch.Name) > width {
			width = len(branch.Name)
		}
	}

	for _, branch := range info.Branches {
		fmt.Fprintf(&b, "%-*s ", width, branch.Name)

		cells := make([]string, 0, len(branch.Moments))
		for _, m := range branch.Moments {
			cells = append(cells, renderCell(m, branch.Active && m.Index == info.ActiveIndex))
		}
		if len(cells) == 0 {
			b.WriteString("(empty)")
		} else {
			b.WriteString(strings.Join(cells, "──"))
		}

		if branch.HasParent {
			fmt.Fprintf(&b, "   forked from %s@%d", branch.Parent, branch.ForkIndex)
		}
		if branch.Paradoxes > 0 {
			fmt.Fprintf(&b, "   %d unresolved", branch.Paradoxes)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nactive: %s@%d", info.ActiveBranch, info.ActiveIndex)
	if info.Stable {
		b.WriteString("  stable")
	} else {
		fmt.Fprintf(&b, "  %d paradoxical moment(s)", info.TotalParadoxes)
	}
	b.WriteByte('\n')
	return b.String()
}

func renderCell(m query.MomentInfo, active bool) string {
	mark := ""
	if m.Paradox {
		mark = "!"
	}
	if active {
		return fmt.Sprintf("[%d%s]", m.Index, mark)
	}
	return fmt.Sprintf("(%d%s)", m.Index, mark)
}

// RenderMoment renders one moment's detail for the REPL's .moment command.
func RenderMoment(m query.MomentInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "moment %d  depth=%d  stack=%s", m.Index, m.Depth, m.Stack)
	if m.Paradox {
		b.WriteString("  PARADOX")
	}
	if m.HasResolved {
		fmt.Fprintf(&b, "  resolved=%s", m.Resolved)
	}
	return b.String()
}
