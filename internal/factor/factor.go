package factor

import (
	"encoding/json"
	"fmt"
)

// #region kind

// Kind enumerates the scoring factors a candidate is built from.
type Kind int

const (
	HitRate Kind = iota
	Streak
	Proximity
	HotZone
	AIConfidence
	ConditionalProbability

	// Count is the number of factor kinds.
	Count
)

var kindNames = [Count]string{
	HitRate:                "hit_rate",
	Streak:                 "streak",
	Proximity:              "proximity",
	HotZone:                "hot_zone",
	AIConfidence:           "ai_confidence",
	ConditionalProbability: "conditional_probability",
}

var kindLabels = [Count]string{
	HitRate:                "Hit rate",
	Streak:                 "Streak",
	Proximity:              "Proximity",
	HotZone:                "Hot zone",
	AIConfidence:           "AI confidence",
	ConditionalProbability: "Conditional probability",
}

// Kinds lists every factor in enumeration order.
func Kinds() []Kind {
	ks := make([]Kind, Count)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// Valid reports whether k is a defined factor.
func (k Kind) Valid() bool {
	return k >= 0 && k < Count
}

// String returns the stable snake_case name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("factor(%d)", int(k))
	}
	return kindNames[k]
}

// Label returns a display name.
func (k Kind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return kindLabels[k]
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", s)
}

// MarshalText encodes the factor by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid factor %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a factor name.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// #endregion kind

// #region values

// Values is the per-factor value table of one candidate. A factor only counts
// toward a score when it is present.
type Values struct {
	v       [Count]float64
	present [Count]bool
}

// Set records a present value.
func (vs *Values) Set(k Kind, v float64) {
	vs.v[k] = v
	vs.present[k] = true
}

// Get returns the value and whether it is present.
func (vs Values) Get(k Kind) (float64, bool) {
	return vs.v[k], vs.present[k]
}

// Value returns the value, zero when absent.
func (vs Values) Value(k Kind) float64 {
	return vs.v[k]
}

// Present reports whether k was set.
func (vs Values) Present(k Kind) bool {
	return vs.present[k]
}

// Sum adds every present value.
func (vs Values) Sum() float64 {
	var s float64
	for k := Kind(0); k < Count; k++ {
		if vs.present[k] {
			s += vs.v[k]
		}
	}
	return s
}

// Weighted returns a copy with each present value multiplied by its influence.
func (vs Values) Weighted(im InfluenceMap) Values {
	out := vs
	for k := Kind(0); k < Count; k++ {
		if out.present[k] {
			out.v[k] *= im.Get(k)
		}
	}
	return out
}

// Max returns the present factor with the largest value; ties keep the earlier
// kind. ok is false when nothing is present.
func (vs Values) Max() (Kind, float64, bool) {
	var best Kind
	var bestV float64
	found := false
	for k := Kind(0); k < Count; k++ {
		if !vs.present[k] {
			continue
		}
		if !found || vs.v[k] > bestV {
			best, bestV, found = k, vs.v[k], true
		}
	}
	return best, bestV, found
}

// PresentKinds lists the present factors in enumeration order.
func (vs Values) PresentKinds() []Kind {
	var ks []Kind
	for k := Kind(0); k < Count; k++ {
		if vs.present[k] {
			ks = append(ks, k)
		}
	}
	return ks
}

// Map returns the present values keyed by factor name.
func (vs Values) Map() map[string]float64 {
	m := make(map[string]float64)
	for k := Kind(0); k < Count; k++ {
		if vs.present[k] {
			m[k.String()] = vs.v[k]
		}
	}
	return m
}

// MarshalJSON encodes present values keyed by name.
func (vs Values) MarshalJSON() ([]byte, error) {
	return json.Marshal(vs.Map())
}

// UnmarshalJSON decodes the name-keyed form.
func (vs *Values) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*vs = Values{}
	for name, v := range m {
		k, err := ParseKind(name)
		if err != nil {
			return err
		}
		vs.Set(k, v)
	}
	return nil
}

// #endregion values
