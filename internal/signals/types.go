package signals

// #region config

// ProducerConfig holds tuning knobs for context stress.
type ProducerConfig struct {
	Window       int     `yaml:"window"`        // most recent confirmed spins considered
	MinSample    int     `yaml:"min_sample"`    // fewer spins → no context
	SectorRadius int     `yaml:"sector_radius"` // pockets either side of each zone member
	MaxPenalty   float64 `yaml:"max_penalty"`   // modifier at full stress is 1 - MaxPenalty
}

// DefaultProducerConfig returns sensible defaults.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Window:       37,
		MinSample:    12,
		SectorRadius: 2,
		MaxPenalty:   0.3,
	}
}

// #endregion config

// #region coverage

// coverage is how often a set of positions was hit in the window.
type coverage struct {
	size      int     // distinct positions covered
	spins     int     // spins in the window
	hits      int     // spins landing inside the set
	expected  float64 // spins × size / wheel length
	sinceLast int     // spins since the set was last hit; spins when never hit
}

// #endregion coverage
