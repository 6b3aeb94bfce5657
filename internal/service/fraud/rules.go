package fraud

import (
	"fmt"
	"strings"

	"github.com/verihire/verihire-backend/internal/domain/candidate"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
)

// Evidence is the consolidated external signal handed to the rule engine.
// Either part may be absent; rules degrade to a no-op rather than failing
// the whole evaluation.
type Evidence struct {
	Github     evidence.GithubEvidence
	References []evidence.ReferenceResponse
}

// RuleFunc inspects an immutable claim+evidence snapshot and yields zero or
// more flags. Rules are pure and must not depend on each other's output.
type RuleFunc func(claim *candidate.Claim, ev Evidence, cfg Config) []verification.Flag

// Rule pairs a stable name with its check for the ordered registry.
type Rule struct {
	Name  string
	Check RuleFunc
}

// defaultRules returns the registry in evaluation order.
func defaultRules() []Rule {
	return []Rule{
		{Name: "skill_evidence_consistency", Check: checkSkillConsistency},
		{Name: "employment_gap", Check: checkEmploymentGaps},
		{Name: "reference_low_rating", Check: checkReferenceRating},
		{Name: "reference_rehire_concern", Check: checkRehireConcern},
	}
}

// checkSkillConsistency flags every normalized claimed skill that the
// code-hosting evidence does not back with at least MinSkillRepoCount
// repositories. One flag per mismatched skill. Disabled entirely when the
// GitHub evidence is unavailable.
func checkSkillConsistency(claim *candidate.Claim, ev Evidence, cfg Config) []verification.Flag {
	if !ev.Github.Available || len(claim.Skills) == 0 {
		return nil
	}

	severity := verification.SeverityMedium
	if cfg.StrictMode {
		severity = verification.SeverityHigh
	}

	// Evidence language names are matched case-insensitively.
	languages := make(map[string]int, len(ev.Github.Languages))
	for lang, count := range ev.Github.Languages {
		languages[strings.ToLower(lang)] = count
	}

	var flags []verification.Flag
	for _, skill := range NormalizeSkills(claim.Skills) {
		if languages[strings.ToLower(skill)] >= cfg.MinSkillRepoCount {
			continue
		}
		flags = append(flags, verification.Flag{
			Type:     "unverified_skill",
			Category: "Technical Skills",
			Severity: severity,
			Message:  fmt.Sprintf("Claimed skill %q is not reflected in the candidate's repositories", skill),
			Evidence: map[string]interface{}{"claimed_skill": skill},
		})
	}
	return flags
}

// checkEmploymentGaps sorts the claimed history by start date and flags every
// gap between consecutive positions that exceeds the medium threshold.
func checkEmploymentGaps(claim *candidate.Claim, ev Evidence, cfg Config) []verification.Flag {
	history := claim.SortedEmployment()
	if len(history) < 2 {
		return nil
	}

	var flags []verification.Flag
	for i := 1; i < len(history); i++ {
		earlier, later := history[i-1], history[i]
		if earlier.EndDate == nil {
			// Claimed as a current position; no gap can follow it.
			continue
		}
		gap := earlier.EndDate.MonthsUntil(later.StartDate)
		if gap <= cfg.GapMediumMonths {
			continue
		}
		severity := verification.SeverityMedium
		if gap > cfg.GapHighMonths {
			severity = verification.SeverityHigh
		}
		flags = append(flags, verification.Flag{
			Type:     "employment_gap",
			Category: "Employment",
			Severity: severity,
			Message: fmt.Sprintf("Unexplained %d-month gap between %s and %s",
				gap, earlier.Company, later.Company),
			Evidence: map[string]interface{}{
				"gap_months":     gap,
				"before_company": earlier.Company,
				"after_company":  later.Company,
			},
		})
	}
	return flags
}

// checkReferenceRating flags a mean performance rating below the configured
// floor. Responses with out-of-range ratings are skipped, not counted.
func checkReferenceRating(claim *candidate.Claim, ev Evidence, cfg Config) []verification.Flag {
	sum, n := 0, 0
	for _, r := range ev.References {
		if !r.Valid() {
			continue
		}
		sum += r.PerformanceRating
		n++
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	if avg >= cfg.MinAverageRating {
		return nil
	}
	return []verification.Flag{{
		Type:     "low_reference_rating",
		Category: "References",
		Severity: verification.SeverityHigh,
		Message:  fmt.Sprintf("References rate the candidate %.1f/10 on average", avg),
		Evidence: map[string]interface{}{"average_rating": avg},
	}}
}

// checkRehireConcern flags two or more references declining to rehire.
func checkRehireConcern(claim *candidate.Claim, ev Evidence, cfg Config) []verification.Flag {
	count := 0
	for _, r := range ev.References {
		if !r.WouldRehire {
			count++
		}
	}
	if count < cfg.RehireConcernCount {
		return nil
	}
	return []verification.Flag{{
		Type:     "rehire_concern",
		Category: "References",
		Severity: verification.SeverityHigh,
		Message:  fmt.Sprintf("%d references would not rehire the candidate", count),
		Evidence: map[string]interface{}{"count_would_not_rehire": count},
	}}
}
