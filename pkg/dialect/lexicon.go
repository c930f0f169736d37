package dialect

import "strings"

// Lexicon maps lower-case month names to two-digit month numbers.
type Lexicon map[string]string

// Month looks a name up case-insensitively, ignoring trailing '.' and ','.
func (l Lexicon) Month(name string) (string, bool) {
	m, ok := l[strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ".,"))]
	return m, ok
}

// With returns a copy of l extended with extra entries.
func (l Lexicon) With(extra map[string]string) Lexicon {
	out := make(Lexicon, len(l)+len(extra))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}

var EnglishMonths = Lexicon{
	"january":   "01",
	"february":  "02",
	"march":     "03",
	"april":     "04",
	"may":       "05",
	"june":      "06",
	"july":      "07",
	"august":    "08",
	"september": "09",
	"october":   "10",
	"november":  "11",
	"december":  "12",
}

// EnglishShortMonths also accepts the abbreviations used in statement labels.
var EnglishShortMonths = EnglishMonths.With(map[string]string{
	"jan":  "01",
	"feb":  "02",
	"mar":  "03",
	"apr":  "04",
	"jun":  "06",
	"jul":  "07",
	"aug":  "08",
	"sep":  "09",
	"sept": "09",
	"oct":  "10",
	"nov":  "11",
	"dec":  "12",
})

var lexicons = map[string]Lexicon{
	"english":       EnglishMonths,
	"english-short": EnglishShortMonths,
}
