package dialect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yurifrl/brokerfacts/pkg/models"
	"gopkg.in/yaml.v3"
)

const defaultTrim = ".,:;"

// Spec is the YAML form of a Profile.
type Spec struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Lexicon     string            `yaml:"lexicon"`
	Months      map[string]string `yaml:"months"`
	Scope       ScopeSpec         `yaml:"scope"`
	Fields      []FieldSpec       `yaml:"fields"`
}

type ScopeSpec struct {
	Anchor           string  `yaml:"anchor"`
	Context          []Check `yaml:"context"`
	KeyOffset        int     `yaml:"key_offset"`
	Trim             string  `yaml:"trim"`
	Normalize        string  `yaml:"normalize"`
	Valid            string  `yaml:"valid"`
	ResetAtPageBreak bool    `yaml:"reset_at_page_break"`
}

type FieldSpec struct {
	Slot      string  `yaml:"slot"`
	Anchor    string  `yaml:"anchor"`
	Context   []Check `yaml:"context"`
	Values    []int   `yaml:"values"`
	Transform string  `yaml:"transform"`
}

// Compile validates the spec and resolves every named rule.
func (s Spec) Compile() (*Profile, error) {
	if s.Name == "" {
		return nil, errors.New("dialect has no name")
	}
	fail := func(format string, args ...interface{}) (*Profile, error) {
		return nil, fmt.Errorf("dialect %s: %s", s.Name, fmt.Sprintf(format, args...))
	}

	lexName := s.Lexicon
	if lexName == "" {
		lexName = "english"
	}
	lex, ok := lexicons[lexName]
	if !ok {
		return fail("unknown lexicon %q", lexName)
	}
	if len(s.Months) > 0 {
		lex = lex.With(s.Months)
	}

	scope, err := s.Scope.compile()
	if err != nil {
		return fail("scope: %v", err)
	}

	p := &Profile{
		Name:        s.Name,
		Description: s.Description,
		Scope:       scope,
		Lexicon:     lex,
	}

	seen := map[models.FieldSlot]bool{}
	for i, fs := range s.Fields {
		fm, err := fs.compile()
		if err != nil {
			return fail("field %d: %v", i, err)
		}
		if seen[fm.Slot] {
			return fail("field %s declared twice", fm.Slot)
		}
		seen[fm.Slot] = true

		if fm.Slot == models.StatementDate {
			if fm.transformName != TransformDate {
				return fail("statement_date must use the %s transform", TransformDate)
			}
			date := fm
			p.Date = &date
			continue
		}
		if fm.transformName == TransformDate {
			return fail("field %s cannot use the %s transform", fm.Slot, TransformDate)
		}
		p.Fields = append(p.Fields, fm)
	}
	return p, nil
}

func (s ScopeSpec) compile() (ScopeMatcher, error) {
	if s.Anchor == "" {
		return ScopeMatcher{}, errors.New("anchor is required")
	}
	if s.KeyOffset == 0 {
		return ScopeMatcher{}, errors.New("key_offset must point away from the anchor")
	}
	normName := s.Normalize
	if normName == "" {
		normName = "none"
	}
	norm, ok := normalizers[normName]
	if !ok {
		return ScopeMatcher{}, fmt.Errorf("unknown normalize rule %q", normName)
	}
	validName := s.Valid
	if validName == "" {
		validName = "alnum"
	}
	valid, ok := predicates[validName]
	if !ok {
		return ScopeMatcher{}, fmt.Errorf("unknown valid rule %q", validName)
	}
	trim := s.Trim
	if trim == "" {
		trim = defaultTrim
	}
	return ScopeMatcher{
		Anchor:           s.Anchor,
		Context:          s.Context,
		KeyOffset:        s.KeyOffset,
		Trim:             trim,
		Normalize:        norm,
		Valid:            valid,
		ResetAtPageBreak: s.ResetAtPageBreak,
		normalizeName:    normName,
		validName:        validName,
	}, nil
}

func (f FieldSpec) compile() (FieldMatcher, error) {
	slot, err := models.ParseFieldSlot(f.Slot)
	if err != nil {
		return FieldMatcher{}, err
	}
	if f.Anchor == "" {
		return FieldMatcher{}, fmt.Errorf("%s: anchor is required", slot)
	}
	name := f.Transform
	if name == "" {
		name = TransformAmount
	}
	tr, ok := transforms[name]
	if !ok {
		return FieldMatcher{}, fmt.Errorf("%s: unknown transform %q", slot, name)
	}
	if len(f.Values) != arity[name] {
		return FieldMatcher{}, fmt.Errorf("%s: transform %s reads %d value tokens, got %d", slot, name, arity[name], len(f.Values))
	}
	return FieldMatcher{
		Slot:          slot,
		Anchor:        f.Anchor,
		Context:       f.Context,
		Values:        f.Values,
		Transform:     tr,
		transformName: name,
	}, nil
}

// Load decodes and compiles a YAML dialect definition.
func Load(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse dialect: %w", err)
	}
	return spec.Compile()
}

// LoadFile reads a YAML dialect definition from disk.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialect file: %w", err)
	}
	p, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
