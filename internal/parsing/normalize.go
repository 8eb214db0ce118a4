package parsing

import (
	"strings"

	"github.com/jonathan/resume-matcher/internal/types"
)

// skillNormalizations maps common skill name variants to canonical names
var skillNormalizations = map[string]string{
	"golang":     "Go",
	"golanglang": "Go",
	"go lang":    "Go",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"k8s":        "Kubernetes",
	"kubernetes": "Kubernetes",
	"react.js":   "React",
	"reactjs":    "React",
	"vue.js":     "Vue",
	"vuejs":      "Vue",
	"node.js":    "Node.js",
	"nodejs":     "Node.js",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"mysql":      "MySQL",
	"mongodb":    "MongoDB",
	"dynamodb":   "DynamoDB",
	"sql":        "SQL",
	"aws":        "AWS",
	"gcp":        "GCP",
	"html":       "HTML",
	"css":        "CSS",
	"php":        "PHP",
	"ios":        "iOS",
	"graphql":    "GraphQL",
	"grpc":       "gRPC",
	"rest":       "REST",
	"ci/cd":      "CI/CD",
	"c++":        "C++",
	"c#":         "C#",
	"fastapi":    "FastAPI",
	"numpy":      "NumPy",
	"pytorch":    "PyTorch",
	"tensorflow": "TensorFlow",

	"github actions": "GitHub Actions",
}

// NormalizeSkillName normalizes a skill name to its canonical form
func NormalizeSkillName(skillName string) string {
	if skillName == "" {
		return ""
	}

	// Trim whitespace
	normalized := strings.TrimSpace(skillName)

	// Check for exact match in normalization map (case-insensitive)
	lower := strings.ToLower(normalized)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}

	// Handle case normalization for common patterns
	// If it's all uppercase, try to find a canonical form
	if normalized == strings.ToUpper(normalized) && len(normalized) > 1 {
		lowerCanonical, ok := skillNormalizations[lower]
		if ok {
			return lowerCanonical
		}
		// For all-caps single words that aren't acronyms, capitalize first letter only
		if !strings.Contains(lower, " ") {
			return strings.ToUpper(normalized[:1]) + strings.ToLower(normalized[1:])
		}
	}

	// For skills starting with lowercase, capitalize first letter if it's a single word
	if normalized != strings.ToUpper(normalized) && normalized != strings.ToLower(normalized) {
		// Already has mixed case, return as-is
		return normalized
	}

	// If all lowercase and single word, capitalize first letter
	if normalized == strings.ToLower(normalized) && !strings.Contains(normalized, " ") && len(normalized) > 0 {
		return strings.ToUpper(normalized[:1]) + normalized[1:]
	}

	return normalized
}

// SkillKey is the comparison key for a skill name: its canonical form, lowercased.
func SkillKey(skillName string) string {
	return strings.ToLower(NormalizeSkillName(skillName))
}

// importanceRank orders importances so duplicates keep the strongest one.
var importanceRank = map[types.Importance]int{
	types.ImportanceNiceToHave: 1,
	types.ImportancePreferred:  2,
	types.ImportanceRequired:   3,
}

// NormalizeRequirements normalizes skill names and deduplicates requirements. A
// duplicated skill keeps the first position and the strongest importance; an empty or
// unknown importance is treated as required.
func NormalizeRequirements(reqs []types.SkillRequirement) []types.SkillRequirement {
	if len(reqs) == 0 {
		return reqs
	}

	normalized := make([]types.SkillRequirement, 0, len(reqs))
	seen := make(map[string]int) // skill key -> index in normalized slice

	for _, req := range reqs {
		name := NormalizeSkillName(req.Name)
		if name == "" {
			continue
		}
		importance := req.Importance
		if _, ok := importanceRank[importance]; !ok {
			importance = types.ImportanceRequired
		}

		key := strings.ToLower(name)
		if idx, exists := seen[key]; exists {
			if importanceRank[importance] > importanceRank[normalized[idx].Importance] {
				normalized[idx].Importance = importance
			}
			continue
		}

		normalized = append(normalized, types.SkillRequirement{Name: name, Importance: importance})
		seen[key] = len(normalized) - 1
	}

	return normalized
}
