package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/hitzone"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/signals"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/update"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/wheel"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// #region types
// Terminal modes.
const (
	TerminalsLastDigit = "last_digit"
	TerminalsNone      = "none"
	TerminalsCustom    = "custom"
)

// PredictionTypeConfig declares one prediction type by formula name.
type PredictionTypeConfig struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Color   string `yaml:"color"`
	Formula string `yaml:"formula"`
}

// PredictorConfig locates the optional AI predictor.
type PredictorConfig struct {
	Enabled bool          `yaml:"enabled"`
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Config is the whole controller configuration.
type Config struct {
	DBPath string `yaml:"db_path"`

	Wheel         []int            `yaml:"wheel"` // empty selects the European order
	TerminalsMode string           `yaml:"terminals_mode"`
	Terminals     map[string][]int `yaml:"terminals"` // used when TerminalsMode is custom

	PredictionTypes []PredictionTypeConfig `yaml:"prediction_types"` // empty selects the built-in catalog
	ActiveTypes     []string               `yaml:"active_types"`     // empty selects every type

	Engine    engine.Config          `yaml:",inline"`
	Learning  update.LearningRates   `yaml:"learning"`
	Eval      eval.EvalConfig        `yaml:"eval"`
	Context   signals.ProducerConfig `yaml:"context"`
	Predictor PredictorConfig        `yaml:"predictor"`
	Log       logging.Config         `yaml:"log"`
	Metrics   MetricsConfig          `yaml:"metrics"`
}

// #endregion types

// #region defaults
// Default returns a complete configuration.
func Default() Config {
	return Config{
		DBPath:        "wheel.db",
		TerminalsMode: TerminalsLastDigit,
		Engine:        engine.DefaultConfig(),
		Learning:      update.DefaultLearningRates(),
		Eval:          eval.DefaultEvalConfig(),
		Context:       signals.DefaultProducerConfig(),
		Predictor: PredictorConfig{
			Address: "localhost:50051",
			Timeout: time.Second,
		},
		Log:     logging.DefaultConfig(),
		Metrics: MetricsConfig{Listen: ":9108"},
	}
}

// #endregion defaults

// #region load
// Load overlays the YAML file at path on the defaults, then applies
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv applies WHEEL_* environment overrides.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("WHEEL_DB"); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup("WHEEL_PREDICTOR_ADDR"); ok && v != "" {
		c.Predictor.Address = v
		c.Predictor.Enabled = true
	}
	if v, ok := lookup("WHEEL_PREDICTOR_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Predictor.Timeout = d
		}
	}
	if v, ok := lookup("WHEEL_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("WHEEL_LESS_STRICT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Engine.Toggles.LessStrict = b
		}
	}
	if v, ok := lookup("WHEEL_AI_AFFECTS_SCORE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Engine.Toggles.AIAffectsScore = b
		}
	}
}

// #endregion load

// #region validate
// Validate checks ranges and resolves the geometry once to surface errors.
func (c Config) Validate() error {
	s := c.Engine.Stats
	g := c.Engine.Gate
	l := c.Learning
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.DBPath != "", "db_path is empty"},
		{s.DecayFactor > 0 && s.DecayFactor <= 1, "stats.decay_factor must be in (0, 1]"},
		{s.RollingWindow > 0 && s.FactorShiftWindow > 0, "stats windows must be positive"},
		{s.DiversityThreshold >= 0 && s.DiversityThreshold <= 1, "stats.diversity_threshold must be in [0, 1]"},
		{s.DominanceThreshold >= 0 && s.DominanceThreshold <= 100, "stats.dominance_threshold must be in [0, 100]"},
		{g.Standard.Strong >= g.Standard.Play, "gate.standard.strong must be ≥ play"},
		{g.LessStrict.Strong >= g.LessStrict.Play, "gate.less_strict.strong must be ≥ play"},
		{c.Engine.Strategy.HitRateThreshold >= 0 && c.Engine.Strategy.HitRateThreshold <= 1, "strategy.hit_rate_threshold must be in [0, 1]"},
		{c.Engine.Strategy.ProximityMaxDistance >= 0, "strategy.proximity_max_distance must be ≥ 0"},
		{c.Engine.Strategy.PocketBoost > 0, "strategy.pocket_boost must be positive"},
		{c.Engine.Explain.RecentWindow > 0, "explain.recent_window must be positive"},
		{l.MinInfluence > 0 && l.MinInfluence <= 1 && l.MaxInfluence >= 1, "learning bounds must bracket 1"},
		{l.ForgetFactor > 0 && l.ForgetFactor <= 1, "learning.forget_factor must be in (0, 1]"},
		{l.SuccessDelta >= 0 && l.FailureDelta >= 0, "learning deltas must be ≥ 0"},
		{c.Eval.MaxMovement > 0 && c.Eval.MaxSpread >= 1, "eval.max_movement must be positive and eval.max_spread ≥ 1"},
		{c.Context.Window > 0 && c.Context.MaxPenalty >= 0 && c.Context.MaxPenalty < 1, "context window/max_penalty out of range"},
		{!c.Predictor.Enabled || (c.Predictor.Address != "" && c.Predictor.Timeout > 0), "predictor needs an address and a positive timeout"},
		{!c.Metrics.Enabled || c.Metrics.Listen != "", "metrics.listen is empty"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, ch.msg)
		}
	}
	for _, v := range []float64{s.DecayFactor, g.Standard.Strong, g.Standard.Play, g.SimplePlay, l.SuccessDelta, l.FailureDelta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite threshold", ErrInvalid)
		}
	}

	if _, err := c.Resolve(); err != nil {
		return err
	}
	return nil
}

// #endregion validate

// #region resolve
// Runtime is the geometry and catalog resolved from configuration.
type Runtime struct {
	Sequence  wheel.Sequence
	Terminals hitzone.TerminalMapping
	Catalog   hitzone.Catalog
}

// Resolve builds the sequence, terminal mapping and catalog.
func (c Config) Resolve() (Runtime, error) {
	seq := wheel.DefaultSequence()
	if len(c.Wheel) > 0 {
		s, err := wheel.NewSequence(c.Wheel)
		if err != nil {
			return Runtime{}, fmt.Errorf("%w: wheel: %v", ErrInvalid, err)
		}
		seq = s
	}

	terms, err := c.terminals(seq)
	if err != nil {
		return Runtime{}, err
	}

	catalog := hitzone.DefaultCatalog()
	if len(c.PredictionTypes) > 0 {
		types := make([]hitzone.PredictionType, 0, len(c.PredictionTypes))
		for _, p := range c.PredictionTypes {
			pt, err := hitzone.NewPredictionType(p.ID, p.Label, p.Color, p.Formula)
			if err != nil {
				return Runtime{}, fmt.Errorf("%w: prediction type %q: %v", ErrInvalid, p.ID, err)
			}
			types = append(types, pt)
		}
		catalog, err = hitzone.NewCatalog(types...)
		if err != nil {
			return Runtime{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	return Runtime{Sequence: seq, Terminals: terms, Catalog: catalog}, nil
}

func (c Config) terminals(seq wheel.Sequence) (hitzone.TerminalMapping, error) {
	switch c.TerminalsMode {
	case "", TerminalsLastDigit:
		return hitzone.DefaultTerminals(), nil
	case TerminalsNone:
		return hitzone.TerminalMapping{}, nil
	case TerminalsCustom:
		m := make(hitzone.TerminalMapping, len(c.Terminals))
		for key, ts := range c.Terminals {
			base, err := strconv.Atoi(key)
			if err != nil || !seq.Contains(base) {
				return nil, fmt.Errorf("%w: terminal key %q is not a wheel position", ErrInvalid, key)
			}
			for _, t := range ts {
				if !seq.Contains(t) {
					return nil, fmt.Errorf("%w: terminal %d of %d is not a wheel position", ErrInvalid, t, base)
				}
			}
			m[base] = append([]int(nil), ts...)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown terminals_mode %q", ErrInvalid, c.TerminalsMode)
	}
}

// #endregion resolve
