package factor

import (
	"encoding/json"
	"math"
)

// #region influence-map

// Neutral is the influence that leaves a factor unchanged.
const Neutral = 1.0

// InfluenceMap holds the adaptive multiplier of every factor. It is a value
// type: callers own it, thread it through scoring and persist it.
type InfluenceMap [Count]float64

// NeutralInfluence returns a map with every factor at Neutral.
func NeutralInfluence() InfluenceMap {
	var m InfluenceMap
	for i := range m {
		m[i] = Neutral
	}
	return m
}

// Get returns the multiplier for k; a zero entry reads as Neutral.
func (m InfluenceMap) Get(k Kind) float64 {
	v := m[k]
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Neutral
	}
	return v
}

// Clamp bounds every entry to [lo, hi].
func (m InfluenceMap) Clamp(lo, hi float64) InfluenceMap {
	out := m
	for i := range out {
		v := out.Get(Kind(i))
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		out[i] = v
	}
	return out
}

// MarshalJSON encodes the map keyed by factor name.
func (m InfluenceMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, Count)
	for _, k := range Kinds() {
		out[k.String()] = m.Get(k)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the name-keyed form; missing factors are Neutral.
func (m *InfluenceMap) UnmarshalJSON(b []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := NeutralInfluence()
	for name, v := range in {
		k, err := ParseKind(name)
		if err != nil {
			return err
		}
		out[k] = v
	}
	*m = out
	return nil
}

// #endregion influence-map
