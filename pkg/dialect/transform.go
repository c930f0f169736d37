package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/brokerfacts/pkg/models"
)

// Transform converts the value tokens of a confirmed anchor into a value.
type Transform func(values []string, lex Lexicon) Match

const (
	TransformAmount = "amount"
	TransformDate   = "date"
)

var transforms = map[string]Transform{
	TransformAmount: Amount,
	TransformDate:   DateMDY,
}

// arity is the number of value tokens each transform reads.
var arity = map[string]int{
	TransformAmount: 1,
	TransformDate:   3,
}

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// ParseAmount normalizes a currency token ("$12,345.67", "(1,000.00)", "12.50-")
// into a float. ok is false for anything that is not a number, such as "N/A".
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if len(s) > 1 && strings.HasSuffix(s, "-") {
		neg = true
		s = s[:len(s)-1]
	}
	s = amountCleaner.Replace(s)
	// decimal accepts exponents; statements never print them
	if s == "" || s == "-" || strings.ContainsAny(s, "eE") {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64(), true
}

// Amount reads a single currency token.
func Amount(values []string, _ Lexicon) Match {
	if len(values) != 1 {
		return NoMatch
	}
	f, ok := ParseAmount(values[0])
	if !ok {
		return NoMatch
	}
	return Matched(models.Number(f))
}

// DateMDY composes month, day and year tokens into YYYY-MM-DD. The day token may
// be a range such as "1-31," in which case the end of the range is used.
func DateMDY(values []string, lex Lexicon) Match {
	if len(values) != 3 {
		return NoMatch
	}
	month, ok := lex.Month(values[0])
	if !ok {
		return NoMatch
	}
	day, err := strconv.Atoi(rangeEnd(trimPunct(values[1])))
	if err != nil {
		return NoMatch
	}
	year, err := strconv.Atoi(trimPunct(values[2]))
	if err != nil || year < 1000 || year > 9999 {
		return NoMatch
	}

	iso := fmt.Sprintf("%04d-%s-%02d", year, month, day)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return NoMatch
	}
	return Matched(models.Date(iso))
}

func trimPunct(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".,;:)")
}

func rangeEnd(s string) string {
	i := strings.LastIndexAny(s, "-–")
	if i < 0 {
		return s
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[i+size:]
}
