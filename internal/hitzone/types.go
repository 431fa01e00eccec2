package hitzone

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// #region terminal-mapping

// TerminalMapping maps a base position to its ordered terminal positions.
type TerminalMapping map[int][]int

// Terminals returns the terminals for base. Callers must wrap base first.
func (m TerminalMapping) Terminals(base int) []int {
	return m[base]
}

// DefaultTerminals maps every position to the other positions that share its
// last decimal digit (5 -> 15, 25, 35).
func DefaultTerminals() TerminalMapping {
	m := make(TerminalMapping, wheel.Size)
	for base := 0; base < wheel.Size; base++ {
		var ts []int
		for p := base % 10; p < wheel.Size; p += 10 {
			if p != base {
				ts = append(ts, p)
			}
		}
		m[base] = ts
	}
	return m
}

// #endregion terminal-mapping

// #region formulas

// Formula maps two operands to an unwrapped base position.
type Formula func(a, b int) int

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var formulas = map[string]Formula{
	"diff":         func(a, b int) int { return absInt(a - b) },
	"sum":          func(a, b int) int { return a + b },
	"diff_plus_1":  func(a, b int) int { return absInt(a-b) + 1 },
	"diff_minus_1": func(a, b int) int { return absInt(a-b) - 1 },
	"sum_plus_1":   func(a, b int) int { return a + b + 1 },
	"sum_minus_1":  func(a, b int) int { return a + b - 1 },
	"diff_mirror":  func(a, b int) int { return wheel.Size - 1 - absInt(a-b) },
	"sum_half":     func(a, b int) int { return (a + b) / 2 },
}

// LookupFormula returns the named formula.
func LookupFormula(name string) (Formula, bool) {
	f, ok := formulas[name]
	return f, ok
}

// FormulaNames lists the registered formula names in sorted order.
func FormulaNames() []string {
	names := make([]string, 0, len(formulas))
	for n := range formulas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// #endregion formulas

// #region prediction-type

// PredictionType is one competing prediction group.
type PredictionType struct {
	ID      string
	Label   string
	Color   string
	Formula string
	Base    Formula
}

// BaseFor returns the wrapped base position for the operands.
func (p PredictionType) BaseFor(a, b int) int {
	return WrapBase(p.Base(a, b))
}

// NewPredictionType binds a formula by name.
func NewPredictionType(id, label, color, formula string) (PredictionType, error) {
	f, ok := LookupFormula(formula)
	if !ok {
		return PredictionType{}, fmt.Errorf("prediction type %q: unknown formula %q", id, formula)
	}
	return PredictionType{ID: id, Label: label, Color: color, Formula: formula, Base: f}, nil
}

// #endregion prediction-type

// #region catalog

// Catalog is the ordered set of known prediction types.
type Catalog struct {
	types []PredictionType
	byID  map[string]int
}

// NewCatalog builds a catalog; IDs must be unique.
func NewCatalog(types ...PredictionType) (Catalog, error) {
	c := Catalog{byID: make(map[string]int, len(types))}
	for _, t := range types {
		if t.ID == "" {
			return Catalog{}, fmt.Errorf("prediction type with empty id")
		}
		if t.Base == nil {
			return Catalog{}, fmt.Errorf("prediction type %q has no formula", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate prediction type %q", t.ID)
		}
		c.byID[t.ID] = len(c.types)
		c.types = append(c.types, t)
	}
	return c, nil
}

// DefaultCatalog returns the built-in prediction types.
func DefaultCatalog() Catalog {
	specs := []struct{ id, label, color, formula string }{
		{"diff", "Difference", "#3b82f6", "diff"},
		{"diff_plus_1", "Difference +1", "#10b981", "diff_plus_1"},
		{"diff_minus_1", "Difference -1", "#f59e0b", "diff_minus_1"},
		{"sum", "Sum", "#ef4444", "sum"},
		{"sum_plus_1", "Sum +1", "#8b5cf6", "sum_plus_1"},
		{"sum_minus_1", "Sum -1", "#ec4899", "sum_minus_1"},
	}
	types := make([]PredictionType, 0, len(specs))
	for _, s := range specs {
		pt, err := NewPredictionType(s.id, s.label, s.color, s.formula)
		if err != nil {
			panic(err)
		}
		types = append(types, pt)
	}
	c, err := NewCatalog(types...)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every type in catalog order.
func (c Catalog) All() []PredictionType {
	out := make([]PredictionType, len(c.types))
	copy(out, c.types)
	return out
}

// Lookup finds a type by ID.
func (c Catalog) Lookup(id string) (PredictionType, bool) {
	i, ok := c.byID[id]
	if !ok {
		return PredictionType{}, false
	}
	return c.types[i], true
}

// Active filters the catalog to ids, preserving the order of ids.
// Unknown ids are returned separately rather than failing.
func (c Catalog) Active(ids []string) (active []PredictionType, unknown []string) {
	if len(ids) == 0 {
		return c.All(), nil
	}
	for _, id := range ids {
		if t, ok := c.Lookup(id); ok {
			active = append(active, t)
		} else {
			unknown = append(unknown, id)
		}
	}
	return active, unknown
}

// #endregion catalog
