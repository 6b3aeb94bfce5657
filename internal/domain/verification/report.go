package verification

import "time"

// Severity grades a single fraud flag.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the three-tier verdict derived purely from flags. It is never
// stored apart from the flags that produced it.
type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

// Flag is a single detected inconsistency. Flags are immutable values; a rule
// may emit several of them at different severities.
type Flag struct {
	Type     string                 `json:"type"`
	Category string                 `json:"category"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// Report is the final fraud verdict for one claim+evidence snapshot. Produced
// fresh on every analysis; no state carries between analyses.
type Report struct {
	RiskLevel   RiskLevel        `json:"risk_level"`
	Flags       []Flag           `json:"flags"`
	FlagCount   map[Severity]int `json:"flag_count"`
	Summary     string           `json:"summary"`
	GeneratedAt time.Time        `json:"generated_at"`
}
