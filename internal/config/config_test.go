package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wheel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	rt, err := Default().Resolve()
	require.NoError(t, err)
	assert.Equal(t, 37, rt.Sequence.Len())
	assert.Equal(t, []int{15, 25, 35}, rt.Terminals.Terminals(5))
	assert.Len(t, rt.Catalog.All(), 6)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.Gate, cfg.Engine.Gate)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeFile(t, `
db_path: /tmp/spins.db
terminals_mode: custom
terminals:
  "5": [15, 25]
prediction_types:
  - {id: d, label: Diff, color: "#000", formula: diff}
  - {id: s, label: Sum, color: "#fff", formula: sum_half}
active_types: [d]
strategy:
  streak_cap: 9
gate:
  standard: {strong: 7, play: 4}
toggles:
  less_strict: true
  ai_affects_score: false
learning:
  success_delta: 0.1
predictor:
  enabled: true
  timeout: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/spins.db", cfg.DBPath)
	assert.Equal(t, 9.0, cfg.Engine.Strategy.StreakCap)
	assert.Equal(t, Default().Engine.Strategy.StreakMultiplier, cfg.Engine.Strategy.StreakMultiplier, "unset keys keep defaults")
	assert.Equal(t, 7.0, cfg.Engine.Gate.Standard.Strong)
	assert.True(t, cfg.Engine.Toggles.LessStrict)
	assert.False(t, cfg.Engine.Toggles.AIAffectsScore)
	assert.True(t, cfg.Engine.Toggles.AdaptivePlay)
	assert.Equal(t, 0.1, cfg.Learning.SuccessDelta)
	assert.Equal(t, 250*time.Millisecond, cfg.Predictor.Timeout)
	assert.Equal(t, []string{"d"}, cfg.ActiveTypes)

	rt, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []int{15, 25}, rt.Terminals.Terminals(5))
	assert.Empty(t, rt.Terminals.Terminals(6))
	_, ok := rt.Catalog.Lookup("s")
	assert.True(t, ok)
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(writeFile(t, "strategy: [not, a, map]"))
	require.Error(t, err)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"decay", func(c *Config) { c.Engine.Stats.DecayFactor = 0 }},
		{"gate pair", func(c *Config) { c.Engine.Gate.Standard.Strong = 1; c.Engine.Gate.Standard.Play = 2 }},
		{"learning bounds", func(c *Config) { c.Learning.MinInfluence = 1.5 }},
		{"eval", func(c *Config) { c.Eval.MaxMovement = 0 }},
		{"predictor", func(c *Config) { c.Predictor.Enabled = true; c.Predictor.Timeout = 0 }},
		{"wheel", func(c *Config) { c.Wheel = []int{0, 1, 2} }},
		{"formula", func(c *Config) { c.PredictionTypes = []PredictionTypeConfig{{ID: "x", Formula: "product"}} }},
		{"terminals mode", func(c *Config) { c.TerminalsMode = "random" }},
		{"terminal key", func(c *Config) {
			c.TerminalsMode = TerminalsCustom
			c.Terminals = map[string][]int{"forty": {1}}
		}},
		{"terminal value", func(c *Config) {
			c.TerminalsMode = TerminalsCustom
			c.Terminals = map[string][]int{"5": {40}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"WHEEL_DB":                "/data/wheel.db",
		"WHEEL_PREDICTOR_ADDR":    "predictor:50051",
		"WHEEL_PREDICTOR_TIMEOUT": "2s",
		"WHEEL_LOG_LEVEL":         "debug",
		"WHEEL_LESS_STRICT":       "true",
		"WHEEL_AI_AFFECTS_SCORE":  "nope",
	}))

	assert.Equal(t, "/data/wheel.db", cfg.DBPath)
	assert.True(t, cfg.Predictor.Enabled)
	assert.Equal(t, "predictor:50051", cfg.Predictor.Address)
	assert.Equal(t, 2*time.Second, cfg.Predictor.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Engine.Toggles.LessStrict)
	assert.True(t, cfg.Engine.Toggles.AIAffectsScore, "unparseable bool leaves the value")
}
