// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate cuts s to width runes, ending in "..." when shortened.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// PrintProfile outputs a human-readable summary of an extracted profile.
func (p *Printer) PrintProfile(profile *types.Profile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:        %s\n", profile.ID)
	if profile.Contact.Email != "" {
		fmt.Fprintf(&sb, "Email:     %s\n", profile.Contact.Email)
	}
	if loc := formatLocation(profile.Location); loc != "" {
		fmt.Fprintf(&sb, "Location:  %s\n", loc)
	}
	fmt.Fprintf(&sb, "Years:     %.1f\n", profile.YearsOfExperience)
	fmt.Fprintf(&sb, "Quality:   %d (skills %d, experience %d, education %d)\n",
		profile.Quality.Overall, profile.Quality.Skills, profile.Quality.Experience, profile.Quality.Education)
	sb.WriteString("\n")

	if len(profile.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills (%d):\n", len(profile.Skills))
		count := min(len(profile.Skills), maxItemsToShow)
		for i := 0; i < count; i++ {
			skill := profile.Skills[i]
			fmt.Fprintf(&sb, "  • %s", skill.Name)
			if skill.Category != "" {
				fmt.Fprintf(&sb, " (%s)", skill.Category)
			}
			sb.WriteString("\n")
		}
		if len(profile.Skills) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(profile.Skills)-maxItemsToShow)
		}
		sb.WriteString("\n")
	}

	if len(profile.Experience) > 0 {
		sb.WriteString("Experience:\n")
		count := min(len(profile.Experience), 3)
		for i := 0; i < count; i++ {
			entry := profile.Experience[i]
			fmt.Fprintf(&sb, "  • %s", orDash(entry.Title))
			if entry.Employer != "" {
				fmt.Fprintf(&sb, " at %s", entry.Employer)
			}
			if span := formatSpan(entry); span != "" {
				fmt.Fprintf(&sb, " [%s]", span)
			}
			sb.WriteString("\n")
		}
		if len(profile.Experience) > 3 {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(profile.Experience)-3)
		}
		sb.WriteString("\n")
	}

	if len(profile.Education) > 0 {
		sb.WriteString("Education:\n")
		for _, entry := range profile.Education {
			fmt.Fprintf(&sb, "  • %s", entry.DegreeLevel)
			if entry.Institution != "" {
				fmt.Fprintf(&sb, ", %s", entry.Institution)
			}
			sb.WriteString("\n")
		}
	}

	p.printBox("PROFILE", strings.TrimSuffix(strings.TrimSuffix(sb.String(), "\n"), "\n"))
}

// PrintMatches outputs ranked matches as a table. titles maps posting ids to
// display titles; unknown ids print as-is.
func (p *Printer) PrintMatches(results []types.MatchResult, titles map[string]string, totalConsidered int) {
	if len(results) == 0 {
		p.printBox("MATCHES", fmt.Sprintf("No matches among %d postings", totalConsidered))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d of %d postings\n\n", len(results), totalConsidered)
	fmt.Fprintf(&sb, "%-3s %-22s %5s %4s %4s %4s %4s %4s\n", "#", "POSTING", "TOTAL", "SKL", "EXP", "LOC", "SAL", "EDU")
	for i, r := range results {
		name := r.PostingID
		if title, ok := titles[r.PostingID]; ok && title != "" {
			name = title
		}
		fmt.Fprintf(&sb, "%-3d %-22s %5.2f %4.2f %4.2f %4.2f %4.2f %4.2f",
			i+1, truncate(name, 22), r.TotalScore,
			r.Breakdown.Skills, r.Breakdown.Experience, r.Breakdown.Location,
			r.Breakdown.Salary, r.Breakdown.Education)
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("MATCHES", sb.String())
}

// PrintTaskStatus outputs a task status report.
func (p *Printer) PrintTaskStatus(report queue.StatusReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task:      %s\n", report.TaskID)
	fmt.Fprintf(&sb, "Type:      %s\n", report.Type)
	fmt.Fprintf(&sb, "Status:    %s\n", report.Status)
	fmt.Fprintf(&sb, "Progress:  %d%%\n", report.Progress)
	fmt.Fprintf(&sb, "Attempts:  %d", report.Attempt)
	if report.CompletedAt != nil {
		fmt.Fprintf(&sb, "\nCompleted: %s", report.CompletedAt.Format(time.RFC3339))
	}
	if report.Error != "" {
		fmt.Fprintf(&sb, "\n⚠ %s", report.Error)
	}

	p.printBox("TASK STATUS", sb.String())
}

func formatLocation(l types.Location) string {
	var parts []string
	for _, s := range []string{l.City, l.State, l.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if l.IsRemote {
		parts = append(parts, "remote")
	}
	return strings.Join(parts, ", ")
}

func formatSpan(e types.ExperienceEntry) string {
	if e.Start == nil {
		return ""
	}
	end := "present"
	if !e.Current && e.End != nil {
		end = e.End.Format("Jan 2006")
	} else if !e.Current {
		return e.Start.Format("Jan 2006")
	}
	return e.Start.Format("Jan 2006") + " - " + end
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
