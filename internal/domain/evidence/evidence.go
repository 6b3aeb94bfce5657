package evidence

// GithubEvidence is the corroborating signal pulled from a candidate's
// code-hosting profile. Available is false when the provider returned an
// error or the profile does not exist; rules must treat that as absence of
// evidence, never as fraud.
type GithubEvidence struct {
	Available     bool           `json:"available"`
	Username      string         `json:"username,omitempty"`
	Languages     map[string]int `json:"languages,omitempty"` // language -> repo count
	TotalRepos    int            `json:"total_repos,omitempty"`
	OriginalRepos int            `json:"original_repos,omitempty"`
	ForkedRepos   int            `json:"forked_repos,omitempty"`
	StarsReceived int            `json:"stars_received,omitempty"`
	TotalCommits  int            `json:"total_commits,omitempty"`
	AccountSince  int            `json:"account_created_year,omitempty"`
	CommitsSample []string       `json:"commits_sample,omitempty"`
}

// Unavailable returns the explicit marker used when the provider could not
// produce a profile.
func Unavailable(username string) GithubEvidence {
	return GithubEvidence{Available: false, Username: username}
}

// HasLanguage reports whether the profile shows at least minRepos
// repositories in the given canonical language.
func (g GithubEvidence) HasLanguage(language string, minRepos int) bool {
	if !g.Available {
		return false
	}
	return g.Languages[language] >= minRepos
}

// ReferenceResponse is a completed reference check, collected over a phone
// conversation or an email round-trip.
type ReferenceResponse struct {
	ReferenceName     string `json:"reference_name,omitempty"`
	Company           string `json:"company"`
	Relationship      string `json:"relationship"`
	PerformanceRating int    `json:"performance_rating"` // 1..10
	WouldRehire       bool   `json:"would_rehire"`
	Channel           string `json:"channel,omitempty"` // "phone" or "email"
}

// Valid reports whether the response carries a usable rating. Malformed
// responses are skipped by the rule engine rather than failing evaluation.
func (r ReferenceResponse) Valid() bool {
	return r.PerformanceRating >= 1 && r.PerformanceRating <= 10
}
