package history

import (
	"errors"
	"sort"
	"time"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

// #region errors

var (
	// ErrNotFound is returned when a record ID does not exist.
	ErrNotFound = errors.New("history record not found")
	// ErrAlreadyConfirmed is returned when evaluating a record that is not pending.
	ErrAlreadyConfirmed = errors.New("history record already confirmed")
	// ErrInvalidPosition is returned for a winning position that is not on the wheel.
	ErrInvalidPosition = errors.New("winning position not on wheel")
)

// #endregion errors

// #region status

// Status is the lifecycle state of a record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// #endregion status

// #region snapshot

// Snapshot freezes the recommended candidate at recommendation time.
// Score is zero when the recommendation was not actionable (not played).
type Snapshot struct {
	GroupID       string        `json:"group_id"`
	Signal        string        `json:"signal"`
	Score         float64       `json:"score"`
	PrimaryFactor *factor.Kind  `json:"primary_factor,omitempty"`
	Values        factor.Values `json:"values"`
}

// #endregion snapshot

// #region record

// Record is one scored observation.
type Record struct {
	ID               int64
	A                int
	B                int
	Difference       int
	Status           Status
	Winning          *int
	Hits             map[string]bool
	PocketDistance   *int
	RecommendedGroup string
	Snapshot         *Snapshot
	CreatedAt        time.Time
}

// NewPending creates a pending record for operands a and b.
func NewPending(id int64, a, b int) Record {
	d := a - b
	if d < 0 {
		d = -d
	}
	return Record{
		ID:         id,
		A:          a,
		B:          b,
		Difference: d,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Confirmed reports whether the record has an outcome.
func (r Record) Confirmed() bool {
	return r.Status != StatusPending && r.Winning != nil
}

// Hit reports whether group hit at this record.
func (r Record) Hit(group string) bool {
	return r.Hits[group]
}

// HitTypes lists the groups that hit, sorted.
func (r Record) HitTypes() []string {
	var out []string
	for g, hit := range r.Hits {
		if hit {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// Played reports whether the record carries a non-zero recommendation score.
func (r Record) Played() bool {
	return r.Snapshot != nil && r.Snapshot.Score != 0
}

// PrimaryFactor returns the recorded primary driving factor, if any.
func (r Record) PrimaryFactor() (factor.Kind, bool) {
	if r.Snapshot == nil || r.Snapshot.PrimaryFactor == nil {
		return 0, false
	}
	return *r.Snapshot.PrimaryFactor, true
}

// #endregion record

// #region collection-helpers

// SortedByID returns a copy of records ordered by ID ascending.
func SortedByID(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConfirmedOnly returns the confirmed records ordered by ID ascending.
func ConfirmedOnly(records []Record) []Record {
	sorted := SortedByID(records)
	out := sorted[:0]
	for _, r := range sorted {
		if r.Confirmed() {
			out = append(out, r)
		}
	}
	return out
}

// LastWinning returns the winning position of the newest confirmed record
// with an ID below beforeID. Pass 0 to consider every record.
func LastWinning(records []Record, beforeID int64) *int {
	var best *Record
	for i := range records {
		r := &records[i]
		if !r.Confirmed() {
			continue
		}
		if beforeID > 0 && r.ID >= beforeID {
			continue
		}
		if best == nil || r.ID > best.ID {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	w := *best.Winning
	return &w
}

// #endregion collection-helpers
