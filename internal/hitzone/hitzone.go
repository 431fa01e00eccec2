package hitzone

import "github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"

// #region wrap

// WrapBase canonicalises any integer into [0, 36]. Out-of-range bases are
// wrapped rather than dropped.
func WrapBase(n int) int {
	return ((n % wheel.Size) + wheel.Size) % wheel.Size
}

// #endregion wrap

// #region zone

// Zone is a deduplicated set of positions, kept in insertion order.
type Zone struct {
	members []int
	set     map[int]struct{}
}

func newZone() *Zone {
	return &Zone{set: make(map[int]struct{})}
}

func (z *Zone) add(ps ...int) {
	for _, p := range ps {
		if _, ok := z.set[p]; ok {
			continue
		}
		z.set[p] = struct{}{}
		z.members = append(z.members, p)
	}
}

// NewZone builds a zone from positions, dropping duplicates.
func NewZone(positions ...int) Zone {
	z := newZone()
	z.add(positions...)
	return *z
}

// Members returns the zone positions in insertion order.
func (z Zone) Members() []int {
	out := make([]int, len(z.members))
	copy(out, z.members)
	return out
}

// Len returns the zone size.
func (z Zone) Len() int {
	return len(z.members)
}

// Contains reports whether position is in the zone.
func (z Zone) Contains(position int) bool {
	_, ok := z.set[position]
	return ok
}

// MinDistance returns the smallest pocket distance from position to any member.
// ok is false when the zone is empty or no distance is defined.
func (z Zone) MinDistance(seq wheel.Sequence, position int) (int, bool) {
	best, found := 0, false
	for _, m := range z.members {
		d, ok := seq.PocketDistance(m, position)
		if !ok {
			continue
		}
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}

// #endregion zone

// #region compute

// Compute derives the hit zone for base. lastWinning may be nil. When dynamic
// is set and the last winning position is the base or one of its terminals,
// terminals are added without neighbours.
func Compute(seq wheel.Sequence, base int, terminals []int, lastWinning *int, dynamic bool) Zone {
	b := WrapBase(base)
	z := newZone()
	z.add(b)

	baseNeighbours := 0
	switch {
	case len(terminals) == 1:
		baseNeighbours = 3
	case len(terminals) >= 2:
		baseNeighbours = 1
	}
	z.add(seq.NeighborsOf(b, baseNeighbours)...)

	terminalNeighbours := 0
	switch {
	case len(terminals) == 1 || len(terminals) == 2:
		terminalNeighbours = 3
	case len(terminals) > 2:
		terminalNeighbours = 1
	}
	if dynamic && lastWinning != nil && (*lastWinning == b || containsInt(terminals, *lastWinning)) {
		terminalNeighbours = 0
	}

	for _, t := range terminals {
		z.add(t)
		z.add(seq.NeighborsOf(t, terminalNeighbours)...)
	}
	return *z
}

// ForType resolves base, terminals and zone for a prediction type in one step.
func ForType(seq wheel.Sequence, terms TerminalMapping, pt PredictionType, a, b int, lastWinning *int, dynamic bool) (int, []int, Zone) {
	base := pt.BaseFor(a, b)
	ts := terms.Terminals(base)
	return base, ts, Compute(seq, base, ts, lastWinning, dynamic)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// #endregion compute
