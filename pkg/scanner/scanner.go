// Package scanner walks the tokens of a page and applies a dialect's matchers.
//
// A Scanner carries the document-level state between pages: the account scope
// currently open and the statement date once it has been found. Tokens seen
// before the first scope anchor are not attributed to any account.
package scanner

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/registry"
)

// Stats summarizes what happened on one page.
type Stats struct {
	Tokens    int
	Anchors   int
	Scopes    int
	Malformed int
	Slots     int
}

func (s *Stats) add(o Stats) {
	s.Tokens += o.Tokens
	s.Anchors += o.Anchors
	s.Scopes += o.Scopes
	s.Malformed += o.Malformed
	s.Slots += o.Slots
}

type Scanner struct {
	logger  *log.Logger
	profile *dialect.Profile
	reg     *registry.Registry

	active    models.AccountKey
	hasActive bool
	date      models.Slot[string]
	total     Stats
}

func New(logger *log.Logger, profile *dialect.Profile, reg *registry.Registry) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		logger:  logger.With("dialect", profile.Name),
		profile: profile,
		reg:     reg,
	}
}

// Date returns the document statement date, Unset until a date matcher fires.
func (s *Scanner) Date() models.Slot[string] {
	return s.date
}

// Active returns the account scope currently open.
func (s *Scanner) Active() (models.AccountKey, bool) {
	return s.active, s.hasActive
}

// Total returns the stats accumulated over every page scanned so far.
func (s *Scanner) Total() Stats {
	return s.total
}

// ScanPage evaluates every matcher at every token position of page.
func (s *Scanner) ScanPage(page models.Page) Stats {
	if s.profile.Scope.ResetAtPageBreak && s.hasActive {
		s.logger.Debug("scope closed at page break", "page", page.Index, "account", s.active)
		s.hasActive = false
		s.active = ""
	}

	texts := page.Texts()
	stats := Stats{Tokens: len(texts)}
	for i := range texts {
		s.scanScope(texts, i, page.Index, &stats)
		s.scanDate(texts, i, &stats)
		s.scanFields(texts, i, &stats)
	}

	s.total.add(stats)
	s.logger.Debug("page scanned",
		"page", page.Index,
		"tokens", stats.Tokens,
		"anchors", stats.Anchors,
		"scopes", stats.Scopes,
		"slots", stats.Slots,
	)
	return stats
}

func (s *Scanner) scanScope(texts []string, i, page int, stats *Stats) {
	scope := s.profile.Scope
	if texts[i] != scope.Anchor {
		return
	}
	stats.Anchors++
	if !contextMatches(texts, i, scope.Context) {
		return
	}
	raw, ok := at(texts, i+scope.KeyOffset)
	if !ok {
		stats.Malformed++
		s.logger.Debug("account key out of range", "page", page, "seq", i)
		return
	}
	key := scope.Normalize(strings.TrimRight(raw, scope.Trim))
	if !scope.Valid(key) {
		stats.Malformed++
		s.logger.Debug("malformed account key", "page", page, "seq", i, "raw", raw, "rule", scope.Rule())
		return
	}

	s.active = models.AccountKey(key)
	s.hasActive = true
	s.reg.CreateIfAbsent(s.active)
	stats.Scopes++
	s.logger.Debug("scope opened", "page", page, "seq", i, "account", key)
}

func (s *Scanner) scanDate(texts []string, i int, stats *Stats) {
	fm := s.profile.Date
	if fm == nil || s.date.IsSet() || texts[i] != fm.Anchor {
		return
	}
	stats.Anchors++
	v, ok := evaluate(texts, i, *fm, s.profile.Lexicon).Value()
	if !ok {
		return
	}
	d, _ := v.DateString()
	s.date = models.Set(d)
	s.logger.Debug("statement date resolved", "date", d)
	if s.hasActive && s.reg.SetSlot(s.active, models.StatementDate, v) {
		stats.Slots++
	}
}

func (s *Scanner) scanFields(texts []string, i int, stats *Stats) {
	if !s.hasActive {
		return
	}
	rec, ok := s.reg.Lookup(s.active)
	if !ok {
		return
	}
	for _, fm := range s.profile.Fields {
		if texts[i] != fm.Anchor {
			continue
		}
		stats.Anchors++
		if rec.IsSet(fm.Slot) {
			continue
		}
		v, ok := evaluate(texts, i, fm, s.profile.Lexicon).Value()
		if !ok {
			s.logger.Debug("field miss", "account", s.active, "slot", fm.Slot, "seq", i)
			continue
		}
		if s.reg.SetSlot(s.active, fm.Slot, v) {
			stats.Slots++
			s.logger.Debug("field set", "account", s.active, "slot", fm.Slot, "value", v)
		}
	}
}

// evaluate applies one matcher whose anchor sits at position i.
func evaluate(texts []string, i int, fm dialect.FieldMatcher, lex dialect.Lexicon) dialect.Match {
	if !contextMatches(texts, i, fm.Context) {
		return dialect.NoMatch
	}
	values := make([]string, 0, len(fm.Values))
	for _, off := range fm.Values {
		t, ok := at(texts, i+off)
		if !ok {
			return dialect.NoMatch
		}
		values = append(values, t)
	}
	return fm.Transform(values, lex)
}

func contextMatches(texts []string, i int, checks []dialect.Check) bool {
	for _, c := range checks {
		t, ok := at(texts, i+c.Offset)
		if !ok || t != c.Literal {
			return false
		}
	}
	return true
}

func at(texts []string, i int) (string, bool) {
	if i < 0 || i >= len(texts) {
		return "", false
	}
	return texts[i], true
}
