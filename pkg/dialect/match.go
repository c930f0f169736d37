package dialect

import "github.com/yurifrl/brokerfacts/pkg/models"

// Match is the outcome of evaluating one matcher at one token position:
// either Matched(value) or NoMatch.
type Match struct {
	value models.Value
	ok    bool
}

// NoMatch is the expected outcome of most anchor candidates.
var NoMatch = Match{}

// Matched wraps a successfully extracted value.
func Matched(v models.Value) Match {
	return Match{value: v, ok: true}
}

// Value returns the matched value and whether the match succeeded.
func (m Match) Value() (models.Value, bool) {
	return m.value, m.ok
}
