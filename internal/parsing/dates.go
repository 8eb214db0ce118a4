package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// dateTokenPattern matches "Mon YYYY", "MM/YYYY" and bare "YYYY" tokens.
	dateTokenPattern = regexp.MustCompile(`(?i)\b(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+((?:19|20)\d{2})|(\d{1,2})/((?:19|20)\d{2})|((?:19|20)\d{2}))\b`)
	presentPattern   = regexp.MustCompile(`(?i)\b(present|current|now|today)\b`)
	yearPattern      = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// DateRange is a start/end pair found on a single line.
type DateRange struct {
	Start   *time.Time
	End     *time.Time
	Current bool
	// Index is the byte offset of the first date token in the line.
	Index int
}

// ParseDateRange finds a date range in line. The first date token is the start, the
// second (if any) the end; a "present"/"current" marker after the start makes the
// range open-ended. ok is false when the line holds no date.
func ParseDateRange(line string) (DateRange, bool) {
	matches := dateTokenPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return DateRange{}, false
	}

	r := DateRange{Index: matches[0][0]}
	if start, ok := dateFromMatch(line, matches[0]); ok {
		r.Start = &start
	}
	if len(matches) > 1 {
		if end, ok := dateFromMatch(line, matches[1]); ok {
			r.End = &end
		}
		return r, true
	}

	rest := line[matches[0][1]:]
	if presentPattern.MatchString(rest) {
		r.Current = true
	}
	return r, true
}

func dateFromMatch(line string, m []int) (time.Time, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return line[m[2*i]:m[2*i+1]]
	}

	month := time.January
	var yearText string
	switch {
	case group(2) != "":
		month = monthsByPrefix[strings.ToLower(group(1))[:3]]
		yearText = group(2)
	case group(4) != "":
		n, err := strconv.Atoi(group(3))
		if err != nil || n < 1 || n > 12 {
			return time.Time{}, false
		}
		month = time.Month(n)
		yearText = group(4)
	default:
		yearText = group(5)
	}

	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}

// FindYears returns every four-digit year (1900-2099) in line, in order.
func FindYears(line string) []int {
	raw := yearPattern.FindAllString(line, -1)
	years := make([]int, 0, len(raw))
	for _, y := range raw {
		if n, err := strconv.Atoi(y); err == nil {
			years = append(years, n)
		}
	}
	return years
}

// stripDates removes the date range and everything after it from line, along with
// trailing separators. When the line starts with a date, the text after the last
// date token is kept instead.
func stripDates(line string) string {
	cut := len(line)
	if loc := dateTokenPattern.FindStringIndex(line); loc != nil {
		cut = loc[0]
	}
	if loc := presentPattern.FindStringIndex(line); loc != nil && loc[0] < cut {
		cut = loc[0]
	}

	head := trimSeparators(line[:cut])
	if head != "" {
		return head
	}

	rest := line
	if all := dateTokenPattern.FindAllStringIndex(line, -1); len(all) > 0 {
		rest = line[all[len(all)-1][1]:]
	}
	rest = presentPattern.ReplaceAllString(rest, "")
	return trimSeparators(rest)
}

func trimSeparators(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "-–—|,:;()@ \t"))
}
