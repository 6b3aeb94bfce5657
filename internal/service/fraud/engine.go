package fraud

import (
	"time"

	"github.com/verihire/verihire-backend/internal/domain/candidate"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
)

// Engine evaluates an ordered registry of independent rules over a
// claim+evidence snapshot. The engine holds no mutable state and is safe to
// share across concurrent sessions.
type Engine struct {
	rules []Rule
	cfg   Config
}

// NewEngine creates an engine with the default rule registry.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		rules: defaultRules(),
		cfg:   cfg,
	}
}

// Evaluate runs every registered rule in order and returns the combined
// flags. Rules tolerate partial or missing evidence; an absent provider
// disables the dependent rule rather than failing the evaluation.
func (e *Engine) Evaluate(claim *candidate.Claim, ev Evidence) []verification.Flag {
	flags := []verification.Flag{}
	for _, rule := range e.rules {
		flags = append(flags, rule.Check(claim, ev, e.cfg)...)
	}
	return flags
}

// Analyze is the rule-engine entry point: pure, synchronous, no I/O. Two
// calls with identical inputs produce identical reports (aside from the
// generation timestamp).
func (e *Engine) Analyze(claim *candidate.Claim, github evidence.GithubEvidence, references []evidence.ReferenceResponse) *verification.Report {
	flags := e.Evaluate(claim, Evidence{Github: github, References: references})
	level, summary := Aggregate(flags)
	return &verification.Report{
		RiskLevel:   level,
		Flags:       flags,
		FlagCount:   CountBySeverity(flags),
		Summary:     summary,
		GeneratedAt: time.Now(),
	}
}
