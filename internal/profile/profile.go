// Package profile builds structured profiles from document text and scores them.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/ingestion"
	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/types"
)

// Options configure Build. Zero values select the defaults.
type Options struct {
	// ID of the resulting profile; a new UUID when empty.
	ID     string
	UserID string
	// Skills extracts skills from the full text; defaults to the dictionary extractor.
	Skills parsing.SkillExtractor
	// Now stamps UpdatedAt and closes open-ended experience entries.
	Now func() time.Time
	// ClosedRolesOnly counts only experience entries with both dates known,
	// so current roles add nothing to YearsOfExperience.
	ClosedRolesOnly bool
	Logger          *zap.Logger
}

// Build segments text, extracts entities and scores the resulting profile. It never
// fails: unrecognized fields stay empty and are logged at debug level.
func Build(ctx context.Context, text string, opts Options) *types.Profile {
	if opts.Skills == nil {
		opts.Skills = parsing.NewDictionaryExtractor(nil, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	cleaned := ingestion.CleanText(text)
	lines := ingestion.SplitLines(cleaned)
	sections := ingestion.Segment(lines)
	now := opts.Now().UTC()

	p := &types.Profile{
		ID:         opts.ID,
		UserID:     opts.UserID,
		RawText:    cleaned,
		Contact:    parsing.ExtractContact(cleaned),
		Location:   parsing.ExtractLocation(lines),
		Skills:     opts.Skills.ExtractSkills(ctx, cleaned),
		Experience: parsing.ExtractExperience(sections.Lines(ingestion.SectionExperience)),
		Education:  parsing.ExtractEducation(sections.Lines(ingestion.SectionEducation)),
		Summary:    strings.Join(sections.Lines(ingestion.SectionSummary), " "),
		UpdatedAt:  now,
	}
	asOf := now
	if opts.ClosedRolesOnly {
		asOf = time.Time{}
	}
	Rescore(p, asOf)

	logGaps(opts.Logger, p)
	return p
}

func logGaps(logger *zap.Logger, p *types.Profile) {
	var gaps []string
	if p.Contact.IsEmpty() {
		gaps = append(gaps, "contact")
	}
	if len(p.Skills) == 0 {
		gaps = append(gaps, "skills")
	}
	if len(p.Experience) == 0 {
		gaps = append(gaps, "experience")
	}
	if len(p.Education) == 0 {
		gaps = append(gaps, "education")
	}
	if p.Location.IsUnknown() {
		gaps = append(gaps, "location")
	}
	if len(gaps) > 0 {
		logger.Debug("extraction gaps", zap.String("profile_id", p.ID), zap.Strings("fields", gaps))
	}
}
