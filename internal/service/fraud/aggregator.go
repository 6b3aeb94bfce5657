package fraud

import (
	"fmt"
	"strings"

	"github.com/verihire/verihire-backend/internal/domain/verification"
)

// Aggregate derives the risk verdict and a human-readable summary from a flag
// multiset. Deterministic table over severity counts:
//
//	no flags, or only mediums          -> green
//	exactly one high, zero critical    -> yellow
//	two or more highs, or any critical -> red
//
// Medium flags never escalate the verdict regardless of count. That is the
// stated product policy, reproduced exactly.
func Aggregate(flags []verification.Flag) (verification.RiskLevel, string) {
	counts := CountBySeverity(flags)
	highs := counts[verification.SeverityHigh]
	criticals := counts[verification.SeverityCritical]

	level := verification.RiskGreen
	switch {
	case criticals > 0 || highs >= 2:
		level = verification.RiskRed
	case highs == 1:
		level = verification.RiskYellow
	}

	return level, summarize(flags)
}

// CountBySeverity tallies flags per severity.
func CountBySeverity(flags []verification.Flag) map[verification.Severity]int {
	counts := make(map[verification.Severity]int)
	for _, f := range flags {
		counts[f.Severity]++
	}
	return counts
}

var severityRank = map[verification.Severity]int{
	verification.SeverityMedium:   1,
	verification.SeverityHigh:     2,
	verification.SeverityCritical: 3,
}

// summarize concatenates the messages of the highest-severity flags behind a
// count prefix. Non-empty whenever flags are non-empty.
func summarize(flags []verification.Flag) string {
	if len(flags) == 0 {
		return "No issues identified"
	}

	top := verification.SeverityMedium
	for _, f := range flags {
		if severityRank[f.Severity] > severityRank[top] {
			top = f.Severity
		}
	}

	var messages []string
	for _, f := range flags {
		if f.Severity == top {
			messages = append(messages, f.Message)
		}
	}

	return fmt.Sprintf("%d issue(s) identified: %s", len(flags), strings.Join(messages, "; "))
}
