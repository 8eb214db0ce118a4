// Package skills holds the skill dictionary and category table used by dictionary-based extraction.
package skills

import (
	"sort"
	"strings"
)

// DefaultConfidence is the flat confidence assigned to dictionary matches.
const DefaultConfidence = 0.8

// Skill categories
const (
	CategoryProgramming = "programming"
	CategoryDatabase    = "database"
	CategoryCloud       = "cloud"
	CategoryDevOps      = "devops"
	CategoryFramework   = "framework"
	CategoryData        = "data"
	CategoryWeb         = "web"
	CategoryMobile      = "mobile"
	CategoryTools       = "tools"
	CategorySoft        = "soft"
)

// defaultCategories is the fixed category table. Keys are lowercase canonical names.
var defaultCategories = map[string]string{
	// programming languages
	"python":     CategoryProgramming,
	"go":         CategoryProgramming,
	"golang":     CategoryProgramming,
	"java":       CategoryProgramming,
	"javascript": CategoryProgramming,
	"typescript": CategoryProgramming,
	"c":          CategoryProgramming,
	"c++":        CategoryProgramming,
	"c#":         CategoryProgramming,
	"rust":       CategoryProgramming,
	"ruby":       CategoryProgramming,
	"php":        CategoryProgramming,
	"kotlin":     CategoryProgramming,
	"swift":      CategoryProgramming,
	"scala":      CategoryProgramming,
	"r":          CategoryProgramming,

	// databases
	"sql":           CategoryDatabase,
	"postgresql":    CategoryDatabase,
	"postgres":      CategoryDatabase,
	"mysql":         CategoryDatabase,
	"mongodb":       CategoryDatabase,
	"redis":         CategoryDatabase,
	"elasticsearch": CategoryDatabase,
	"cassandra":     CategoryDatabase,
	"sqlite":        CategoryDatabase,
	"dynamodb":      CategoryDatabase,

	// cloud
	"aws":   CategoryCloud,
	"gcp":   CategoryCloud,
	"azure": CategoryCloud,

	// devops
	"docker":         CategoryDevOps,
	"kubernetes":     CategoryDevOps,
	"terraform":      CategoryDevOps,
	"ansible":        CategoryDevOps,
	"jenkins":        CategoryDevOps,
	"ci/cd":          CategoryDevOps,
	"linux":          CategoryDevOps,
	"github actions": CategoryDevOps,

	// frameworks
	"django":  CategoryFramework,
	"flask":   CategoryFramework,
	"fastapi": CategoryFramework,
	"spring":  CategoryFramework,
	"rails":   CategoryFramework,
	"express": CategoryFramework,
	"react":   CategoryFramework,
	"angular": CategoryFramework,
	"vue":     CategoryFramework,
	"node.js": CategoryFramework,

	// data
	"machine learning": CategoryData,
	"deep learning":    CategoryData,
	"pandas":           CategoryData,
	"numpy":            CategoryData,
	"tensorflow":       CategoryData,
	"pytorch":          CategoryData,
	"spark":            CategoryData,
	"kafka":            CategoryData,
	"airflow":          CategoryData,
	"tableau":          CategoryData,

	// web
	"html":    CategoryWeb,
	"css":     CategoryWeb,
	"graphql": CategoryWeb,
	"rest":    CategoryWeb,
	"grpc":    CategoryWeb,

	// mobile
	"android": CategoryMobile,
	"ios":     CategoryMobile,
	"flutter": CategoryMobile,

	// tools
	"git":   CategoryTools,
	"jira":  CategoryTools,
	"figma": CategoryTools,

	// soft skills
	"leadership":    CategorySoft,
	"communication": CategorySoft,
	"mentoring":     CategorySoft,
	"agile":         CategorySoft,
	"scrum":         CategorySoft,
}

// Dictionary maps lowercase skill names to categories. The zero value is not usable;
// build one with NewDictionary or DefaultDictionary.
type Dictionary struct {
	categories map[string]string
	maxWords   int
}

// NewDictionary builds a dictionary from a name-to-category table. Names are matched
// case-insensitively; multi-word names are supported.
func NewDictionary(entries map[string]string) *Dictionary {
	d := &Dictionary{categories: make(map[string]string, len(entries)), maxWords: 1}
	for name, category := range entries {
		d.Add(name, category)
	}
	return d
}

// DefaultDictionary returns a dictionary seeded with the built-in category table.
func DefaultDictionary() *Dictionary {
	return NewDictionary(defaultCategories)
}

// Add registers (or recategorizes) a skill name.
func (d *Dictionary) Add(name, category string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	d.categories[key] = category
	if words := len(strings.Fields(key)); words > d.maxWords {
		d.maxWords = words
	}
}

// Lookup returns the category for a name, matched case-insensitively.
func (d *Dictionary) Lookup(name string) (string, bool) {
	category, ok := d.categories[strings.ToLower(strings.TrimSpace(name))]
	return category, ok
}

// MaxWords is the word count of the longest dictionary entry.
func (d *Dictionary) MaxWords() int {
	return d.maxWords
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.categories)
}

// Names returns all entries in sorted order.
func (d *Dictionary) Names() []string {
	names := make([]string, 0, len(d.categories))
	for name := range d.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
