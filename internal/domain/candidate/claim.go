package candidate

import (
	"fmt"
	"sort"
	"strings"
)

// EmploymentClaim is a single asserted position on the resume. EndDate is nil
// when the candidate claims the position is current.
type EmploymentClaim struct {
	Company   string `json:"company"`
	Title     string `json:"title"`
	StartDate Month  `json:"start_date"`
	EndDate   *Month `json:"end_date,omitempty"`
}

// Claim holds the candidate-asserted facts to be verified. Constructed once
// at the boundary and treated as immutable afterwards.
type Claim struct {
	Name              string            `json:"name"`
	Email             string            `json:"email,omitempty"`
	GithubUsername    string            `json:"github_username,omitempty"`
	Skills            []string          `json:"skills"`
	EmploymentHistory []EmploymentClaim `json:"employment_history"`
}

// NewClaim validates and constructs a Claim.
func NewClaim(name string, skills []string, history []EmploymentClaim) (*Claim, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("candidate name cannot be empty")
	}
	for i, e := range history {
		if e.StartDate.IsZero() {
			return nil, fmt.Errorf("employment entry %d (%s): missing start date", i, e.Company)
		}
		if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
			return nil, fmt.Errorf("employment entry %d (%s): end date precedes start date", i, e.Company)
		}
	}
	return &Claim{
		Name:              name,
		Skills:            skills,
		EmploymentHistory: history,
	}, nil
}

// SortedEmployment returns a copy of the employment history ordered by start
// date ascending. Resume order is not trusted.
func (c *Claim) SortedEmployment() []EmploymentClaim {
	sorted := make([]EmploymentClaim, len(c.EmploymentHistory))
	copy(sorted, c.EmploymentHistory)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})
	return sorted
}
