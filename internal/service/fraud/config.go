package fraud

// Config holds the policy knobs for the rule engine. StrictMode raises
// severities and lowers thresholds for pipelines that prefer false positives
// over missed signals.
type Config struct {
	StrictMode         bool
	MinSkillRepoCount  int
	GapMediumMonths    int
	GapHighMonths      int
	MinAverageRating   float64
	RehireConcernCount int
}

// DefaultConfig returns the observed production thresholds.
func DefaultConfig() Config {
	return Config{
		StrictMode:         false,
		MinSkillRepoCount:  1,
		GapMediumMonths:    6,
		GapHighMonths:      12,
		MinAverageRating:   6.5,
		RehireConcernCount: 2,
	}
}

// StrictConfig returns DefaultConfig with strict mode enabled.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.StrictMode = true
	return cfg
}
