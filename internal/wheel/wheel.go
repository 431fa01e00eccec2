package wheel

import "fmt"

// #region constants

// Size is the number of pockets on a single-zero wheel.
const Size = 37

// European is the single-zero wheel order, clockwise from zero.
var European = []int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

// #endregion constants

// #region sequence

// Sequence is an immutable circular ordering of positions.
type Sequence struct {
	order []int
	index map[int]int
}

// NewSequence validates order (Size distinct values in [0, Size)) and builds a Sequence.
func NewSequence(order []int) (Sequence, error) {
	if len(order) != Size {
		return Sequence{}, fmt.Errorf("sequence has %d positions, want %d", len(order), Size)
	}
	idx := make(map[int]int, len(order))
	for i, p := range order {
		if p < 0 || p >= Size {
			return Sequence{}, fmt.Errorf("position %d at index %d out of range", p, i)
		}
		if _, dup := idx[p]; dup {
			return Sequence{}, fmt.Errorf("position %d appears more than once", p)
		}
		idx[p] = i
	}
	cp := make([]int, len(order))
	copy(cp, order)
	return Sequence{order: cp, index: idx}, nil
}

// MustSequence is NewSequence for compiled-in orders.
func MustSequence(order []int) Sequence {
	s, err := NewSequence(order)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSequence returns the European wheel.
func DefaultSequence() Sequence {
	return MustSequence(European)
}

// Len returns the number of positions.
func (s Sequence) Len() int {
	return len(s.order)
}

// Positions returns a copy of the ordering.
func (s Sequence) Positions() []int {
	cp := make([]int, len(s.order))
	copy(cp, s.order)
	return cp
}

// IndexOf returns the index of position, or false if absent.
func (s Sequence) IndexOf(position int) (int, bool) {
	i, ok := s.index[position]
	return i, ok
}

// Contains reports whether position is on the wheel.
func (s Sequence) Contains(position int) bool {
	_, ok := s.index[position]
	return ok
}

// #endregion sequence

// #region geometry

// NeighborsOf returns the positions 1..count steps either side of position,
// excluding position itself. Order: clockwise step 1, anticlockwise step 1, ...
func (s Sequence) NeighborsOf(position, count int) []int {
	i, ok := s.index[position]
	if !ok || count <= 0 {
		return nil
	}
	n := len(s.order)
	seen := map[int]struct{}{position: {}}
	out := make([]int, 0, 2*count)
	for step := 1; step <= count; step++ {
		for _, j := range [2]int{(i + step) % n, ((i-step)%n + n) % n} {
			p := s.order[j]
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// PocketDistance returns the minimal number of steps between a and b around
// the wheel. ok is false when either position is not on the wheel.
func (s Sequence) PocketDistance(a, b int) (int, bool) {
	ia, okA := s.index[a]
	ib, okB := s.index[b]
	if !okA || !okB {
		return 0, false
	}
	d := ia - ib
	if d < 0 {
		d = -d
	}
	if alt := len(s.order) - d; alt < d {
		d = alt
	}
	return d, true
}

// Arc returns position followed by its neighbours within radius.
func (s Sequence) Arc(position, radius int) []int {
	if !s.Contains(position) {
		return nil
	}
	return append([]int{position}, s.NeighborsOf(position, radius)...)
}

// #endregion geometry
