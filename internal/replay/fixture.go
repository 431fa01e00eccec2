package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description    string               `json:"description"`
	StartInfluence *factor.InfluenceMap `json:"start_influence,omitempty"`
	Spins          []FixtureSpin        `json:"spins"`
}

// FixtureSpin mirrors Spin with JSON tags.
type FixtureSpin struct {
	A              int    `json:"a"`
	B              int    `json:"b"`
	Winning        int    `json:"winning"`
	ExpectedSignal string `json:"expected_signal,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Influence returns the fixture's start influence, neutral when unset.
func (f *Fixture) Influence() factor.InfluenceMap {
	if f.StartInfluence == nil {
		return factor.NeutralInfluence()
	}
	return *f.StartInfluence
}

// ToSpins converts the fixture spins to domain spins.
func (f *Fixture) ToSpins() []Spin {
	out := make([]Spin, len(f.Spins))
	for i, s := range f.Spins {
		out[i] = Spin{A: s.A, B: s.B, Winning: s.Winning, ExpectedSignal: gate.Signal(s.ExpectedSignal)}
	}
	return out
}

// SpinsFromHistory extracts the confirmed records of an existing history as
// spins, in ID order. Pending records have no outcome and are skipped.
func SpinsFromHistory(records []history.Record) []Spin {
	confirmed := history.ConfirmedOnly(records)
	out := make([]Spin, 0, len(confirmed))
	for _, r := range confirmed {
		out = append(out, Spin{A: r.A, B: r.B, Winning: *r.Winning})
	}
	return out
}

// NewFixture builds a fixture from a completed run, recording each spin's
// signal as the expectation for later regression runs.
func NewFixture(description string, start factor.InfluenceMap, spins []Spin, run Run) Fixture {
	f := Fixture{Description: description, StartInfluence: &start}
	for i, s := range spins {
		fs := FixtureSpin{A: s.A, B: s.B, Winning: s.Winning}
		if i < len(run.Results) {
			fs.ExpectedSignal = string(run.Results[i].Signal)
		}
		f.Spins = append(f.Spins, fs)
	}
	return f
}

// #endregion fixture-loader
