package parsing

import (
	"context"
	"strings"
	"unicode"

	"github.com/jonathan/resume-matcher/internal/skills"
	"github.com/jonathan/resume-matcher/internal/types"
)

// SkillExtractor finds skills in document text. Implementations must not fail:
// when nothing is recognized they return an empty slice.
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, text string) []types.Skill
}

// DictionaryExtractor matches tokens of the text against a skill dictionary.
type DictionaryExtractor struct {
	Dictionary *skills.Dictionary
	Confidence float64
}

// NewDictionaryExtractor returns an extractor over dict with the given flat confidence.
// A nil dict uses the built-in dictionary; a non-positive confidence uses
// skills.DefaultConfidence.
func NewDictionaryExtractor(dict *skills.Dictionary, confidence float64) *DictionaryExtractor {
	if dict == nil {
		dict = skills.DefaultDictionary()
	}
	if confidence <= 0 || confidence > 1 {
		confidence = skills.DefaultConfidence
	}
	return &DictionaryExtractor{Dictionary: dict, Confidence: confidence}
}

// ExtractSkills implements SkillExtractor.
func (e *DictionaryExtractor) ExtractSkills(_ context.Context, text string) []types.Skill {
	return extractSkills(text, e.Dictionary, e.Confidence)
}

// ExtractSkills runs the built-in dictionary over text.
func ExtractSkills(text string) []types.Skill {
	return extractSkills(text, skills.DefaultDictionary(), skills.DefaultConfidence)
}

func extractSkills(text string, dict *skills.Dictionary, confidence float64) []types.Skill {
	tokens := Tokenize(text)
	found := []types.Skill{}
	seen := make(map[string]bool)

	for i := 0; i < len(tokens); {
		matched := 0
		// Longest multi-word entry wins.
		for n := min(dict.MaxWords(), len(tokens)-i); n >= 1; n-- {
			candidate := strings.Join(tokens[i:i+n], " ")
			category, ok := dict.Lookup(candidate)
			if !ok {
				continue
			}
			name := NormalizeSkillName(candidate)
			key := strings.ToLower(name)
			if !seen[key] {
				seen[key] = true
				found = append(found, types.Skill{Name: name, Category: category, Confidence: confidence})
			}
			matched = n
			break
		}
		if matched == 0 {
			// "python/django" style tokens list several skills.
			if strings.Contains(tokens[i], "/") {
				for _, part := range strings.Split(tokens[i], "/") {
					if category, ok := dict.Lookup(part); ok {
						name := NormalizeSkillName(part)
						if key := strings.ToLower(name); !seen[key] {
							seen[key] = true
							found = append(found, types.Skill{Name: name, Category: category, Confidence: confidence})
						}
					}
				}
			}
			matched = 1
		}
		i += matched
	}

	return found
}

// Tokenize lowercases text and splits it into skill-sized tokens. Characters that
// appear inside skill names ("c++", "c#", "node.js", "ci/cd") are kept; trailing
// punctuation is dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		switch r {
		case '+', '#', '.', '/', '-', '_':
			return false
		}
		return true
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-_/")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
