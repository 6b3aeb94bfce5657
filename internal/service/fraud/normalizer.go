package fraud

import "strings"

// skillAliases maps lower-cased claimed skills to the canonical technology
// identifier used by the evidence providers. Frameworks alias to the language
// the work would actually show up as on a code-hosting profile.
var skillAliases = map[string]string{
	"python":     "Python",
	"django":     "Python",
	"flask":      "Python",
	"fastapi":    "Python",
	"pandas":     "Python",
	"numpy":      "Python",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"react":      "JavaScript",
	"reactjs":    "JavaScript",
	"node":       "JavaScript",
	"nodejs":     "JavaScript",
	"node.js":    "JavaScript",
	"vue":        "JavaScript",
	"angular":    "TypeScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"next.js":    "TypeScript",
	"java":       "Java",
	"spring":     "Java",
	"kotlin":     "Kotlin",
	"go":         "Go",
	"golang":     "Go",
	"ruby":       "Ruby",
	"rails":      "Ruby",
	"php":        "PHP",
	"laravel":    "PHP",
	"c#":         "C#",
	".net":       "C#",
	"dotnet":     "C#",
	"c++":        "C++",
	"rust":       "Rust",
	"swift":      "Swift",
	"scala":      "Scala",
	"r":          "R",
	"html":       "HTML",
	"css":        "CSS",
	"sql":        "SQL",
	"postgresql": "SQL",
	"mysql":      "SQL",
}

// NormalizeSkill maps a free-text claimed skill to its canonical identifier.
// Matching is case- and surrounding-punctuation-insensitive; unknown tokens
// pass through unchanged as their own canonical id. Deterministic and
// side-effect-free.
func NormalizeSkill(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, ",;")
	if canonical, ok := skillAliases[key]; ok {
		return canonical
	}
	return key
}

// NormalizeSkills normalizes a claimed skill list and deduplicates the
// resulting canonical ids, preserving first-seen order.
func NormalizeSkills(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		canonical := NormalizeSkill(s)
		if canonical == "" {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}
