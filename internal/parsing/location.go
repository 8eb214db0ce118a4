package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-matcher/internal/types"
)

// headerLineLimit is how many leading lines are searched for a location.
const headerLineLimit = 8

var cityRegionPattern = regexp.MustCompile(`^([A-Z][A-Za-z .'-]{1,40}),\s*([A-Za-z][A-Za-z .]{1,30})$`)

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true,
	"KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true, "NY": true,
	"NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

// countryNames maps lowercase country spellings to a canonical name.
var countryNames = map[string]string{
	"usa":            "US",
	"us":             "US",
	"u.s.":           "US",
	"united states":  "US",
	"canada":         "Canada",
	"uk":             "UK",
	"united kingdom": "UK",
	"england":        "UK",
	"germany":        "Germany",
	"france":         "France",
	"spain":          "Spain",
	"italy":          "Italy",
	"netherlands":    "Netherlands",
	"ireland":        "Ireland",
	"poland":         "Poland",
	"portugal":       "Portugal",
	"sweden":         "Sweden",
	"switzerland":    "Switzerland",
	"india":          "India",
	"indonesia":      "Indonesia",
	"singapore":      "Singapore",
	"japan":          "Japan",
	"australia":      "Australia",
	"brazil":         "Brazil",
	"mexico":         "Mexico",
}

// ExtractLocation looks for a "City, ST" or "City, Country" fragment in the first
// lines of a document. Header lines often join several fields with "|" or bullets, so
// each fragment is checked on its own.
func ExtractLocation(lines []string) types.Location {
	limit := min(len(lines), headerLineLimit)
	for _, line := range lines[:limit] {
		for _, fragment := range strings.FieldsFunc(line, isHeaderSeparator) {
			if loc, ok := parseLocation(strings.TrimSpace(fragment)); ok {
				return loc
			}
		}
	}
	return types.Location{}
}

func isHeaderSeparator(r rune) bool {
	return r == '|' || r == '•' || r == '·' || r == '\t'
}

func parseLocation(fragment string) (types.Location, bool) {
	m := cityRegionPattern.FindStringSubmatch(fragment)
	if m == nil {
		return types.Location{}, false
	}
	city, region := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])

	if upper := strings.ToUpper(region); len(region) == 2 && usStates[upper] {
		return types.Location{City: city, State: upper, Country: "US"}, true
	}
	if country, ok := countryNames[strings.ToLower(region)]; ok {
		return types.Location{City: city, Country: country}, true
	}
	return types.Location{}, false
}
