package logging

import "time"

// #region logger-config
// Config selects the operational log level and format.
type Config struct {
	Level  string `yaml:"level"`  // zerolog level name
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

// DefaultConfig returns info-level console logging.
func DefaultConfig() Config {
	return Config{Level: "info", Pretty: true}
}

// #endregion logger-config

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	DecisionID       string
	RecordID         int64
	Kind             string // "recommend" | "outcome"
	InfluenceVersion string
	Signal           string
	GroupID          string
	Score            float64
	Reason           string
	DetailJSON       string
	CreatedAt        time.Time
}

// #endregion decision-entry

// #region decision-record
// DecisionRecord captures a recommendation cycle in full. Serialized as JSON
// into decision_log.detail_json for replay and inspection.
type DecisionRecord struct {
	RecordID int64  `json:"record_id"`
	A        int    `json:"a"`
	B        int    `json:"b"`
	Signal   string `json:"signal"`
	Rule     string `json:"rule"`
	Reason   string `json:"reason"`

	Ranked   []RankedCandidate `json:"ranked"`
	Skipped  []string          `json:"skipped,omitempty"`
	Excluded []string          `json:"excluded,omitempty"`

	AIReady   bool               `json:"ai_ready"`
	Influence map[string]float64 `json:"influence"`

	Headline   string   `json:"headline,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Bullets    []string `json:"bullets,omitempty"`
}

// RankedCandidate is one scored group inside a DecisionRecord.
type RankedCandidate struct {
	GroupID       string             `json:"group_id"`
	Base          int                `json:"base"`
	Zone          []int              `json:"zone"`
	RawScore      float64            `json:"raw_score"`
	FinalScore    float64            `json:"final_score"`
	PrimaryFactor string             `json:"primary_factor,omitempty"`
	Values        map[string]float64 `json:"values"`
	Reasons       []string           `json:"reasons,omitempty"`
}

// OutcomeRecord captures the learning step after a confirmed spin.
type OutcomeRecord struct {
	RecordID     int64              `json:"record_id"`
	Winning      int                `json:"winning"`
	Status       string             `json:"status"`
	Played       bool               `json:"played"`
	Won          bool               `json:"won"`
	Severity     float64            `json:"severity"`
	Nudged       []string           `json:"nudged,omitempty"`
	Movement     float64            `json:"movement"`
	Influence    map[string]float64 `json:"influence"`
	UpdateAction string             `json:"update_action"`
}

// #endregion decision-record
