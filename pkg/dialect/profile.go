// Package dialect describes institution-specific statement layouts as data:
// anchor words, literal context checks at fixed offsets, value offsets and
// value transforms. The scanning algorithm itself lives in package scanner.
package dialect

import "github.com/yurifrl/brokerfacts/pkg/models"

// Check expects Literal at Offset tokens away from the anchor.
type Check struct {
	Offset  int    `yaml:"offset" json:"offset"`
	Literal string `yaml:"literal" json:"literal"`
}

// ScopeMatcher recognizes the start of an account's section.
type ScopeMatcher struct {
	Anchor    string
	Context   []Check
	KeyOffset int
	// Trim is the cutset of trailing punctuation removed from the key token.
	Trim      string
	Normalize KeyNormalizer
	Valid     KeyPredicate
	// ResetAtPageBreak closes the active scope at every page boundary.
	ResetAtPageBreak bool

	normalizeName string
	validName     string
}

// Rule describes the key rules for listings.
func (s ScopeMatcher) Rule() string {
	return s.normalizeName + "/" + s.validName
}

// FieldMatcher extracts one FieldSlot.
type FieldMatcher struct {
	Slot      models.FieldSlot
	Anchor    string
	Context   []Check
	Values    []int
	Transform Transform

	transformName string
}

// TransformName returns the name the transform was declared with.
func (f FieldMatcher) TransformName() string {
	return f.transformName
}

// Profile is one dialect: a scope matcher, an optional statement date matcher,
// the per-account field matchers and a month lexicon.
type Profile struct {
	Name        string
	Description string
	Scope       ScopeMatcher
	Date        *FieldMatcher
	Fields      []FieldMatcher
	Lexicon     Lexicon
}

// Anchors returns every anchor word the profile reacts to.
func (p *Profile) Anchors() []string {
	seen := map[string]bool{}
	var out []string
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	add(p.Scope.Anchor)
	if p.Date != nil {
		add(p.Date.Anchor)
	}
	for _, f := range p.Fields {
		add(f.Anchor)
	}
	return out
}
