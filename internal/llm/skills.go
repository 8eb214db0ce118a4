package llm

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/skills"
	"github.com/jonathan/resume-matcher/internal/types"
)

// maxPromptChars caps the document text sent to the model.
const maxPromptChars = 20000

// otherCategory is used for model-reported skills without a known category.
const otherCategory = "other"

var skillCategories = []string{
	skills.CategoryProgramming, skills.CategoryDatabase, skills.CategoryCloud,
	skills.CategoryDevOps, skills.CategoryFramework, skills.CategoryData,
	skills.CategoryWeb, skills.CategoryMobile, skills.CategoryTools, skills.CategorySoft,
}

// SkillExtractor asks a model for the skills in a document. Any model failure or empty
// answer degrades to the fallback extractor, so ExtractSkills never fails.
type SkillExtractor struct {
	client     Client
	fallback   parsing.SkillExtractor
	dictionary *skills.Dictionary
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSkillExtractor wraps client. fallback is usually a parsing.DictionaryExtractor;
// dict supplies categories for skills it knows.
func NewSkillExtractor(client Client, fallback parsing.SkillExtractor, dict *skills.Dictionary, config *Config, logger *zap.Logger) *SkillExtractor {
	if dict == nil {
		dict = skills.DefaultDictionary()
	}
	if fallback == nil {
		fallback = parsing.NewDictionaryExtractor(dict, skills.DefaultConfidence)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillExtractor{
		client:     client,
		fallback:   fallback,
		dictionary: dict,
		timeout:    config.Timeout,
		logger:     logger,
	}
}

// ExtractSkills implements parsing.SkillExtractor.
func (e *SkillExtractor) ExtractSkills(ctx context.Context, text string) []types.Skill {
	if strings.TrimSpace(text) == "" {
		return []types.Skill{}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := BuildExtractionPrompt(SkillsSchema(skillCategories), promptExcerpt(text, maxPromptChars))

	response, err := e.client.GenerateJSON(ctx, prompt, TierLite)
	if err != nil {
		e.logger.Debug("model skill extraction failed, using dictionary", zap.Error(err))
		return e.fallback.ExtractSkills(ctx, text)
	}

	found, err := e.parseSkills(response)
	if err != nil || len(found) == 0 {
		e.logger.Debug("model returned no usable skills, using dictionary", zap.Error(err))
		return e.fallback.ExtractSkills(ctx, text)
	}
	return found
}

// promptExcerpt cuts text to at most limit bytes without splitting a rune.
func promptExcerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// parseSkills reads {"skills": [{"name", "category", "confidence"}]} and dedupes by
// canonical name. Dictionary categories override model-reported ones.
func (e *SkillExtractor) parseSkills(response string) ([]types.Skill, error) {
	if !gjson.Valid(response) {
		return nil, &ParseError{Message: "response is not valid JSON"}
	}

	list := gjson.Get(response, "skills")
	if !list.IsArray() {
		// Some models answer with a bare array.
		list = gjson.Parse(response)
		if !list.IsArray() {
			return nil, &ParseError{Message: "response has no skills array"}
		}
	}

	found := []types.Skill{}
	seen := make(map[string]bool)
	list.ForEach(func(_, item gjson.Result) bool {
		raw := item.Get("name").String()
		if item.Type == gjson.String {
			raw = item.String()
		}
		name := parsing.NormalizeSkillName(raw)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return true
		}
		seen[key] = true

		found = append(found, types.Skill{
			Name:       name,
			Category:   e.category(raw, item.Get("category").String()),
			Confidence: confidence(item.Get("confidence")),
		})
		return true
	})

	return found, nil
}

func (e *SkillExtractor) category(name, reported string) string {
	if category, ok := e.dictionary.Lookup(name); ok {
		return category
	}
	if category, ok := e.dictionary.Lookup(parsing.NormalizeSkillName(name)); ok {
		return category
	}
	reported = strings.ToLower(strings.TrimSpace(reported))
	for _, known := range skillCategories {
		if reported == known {
			return known
		}
	}
	return otherCategory
}

func confidence(v gjson.Result) float64 {
	if !v.Exists() || v.Type != gjson.Number {
		return skills.DefaultConfidence
	}
	c := v.Float()
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
