package dialect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yurifrl/brokerfacts/pkg/models"
)

func TestBuiltinDialects(t *testing.T) {
	reg := Builtin()

	names := reg.Names()
	if len(names) < 2 {
		t.Fatalf("expected at least two builtin dialects, got %v", names)
	}

	for _, name := range []string{"chase", "schwab", "fidelity"} {
		p, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("builtin dialect %s missing", name)
		}
		if p.Date == nil {
			t.Errorf("%s: no statement date matcher", name)
		}
		if len(p.Fields) != len(models.FieldSlots)-1 {
			t.Errorf("%s: expected %d field matchers, got %d", name, len(models.FieldSlots)-1, len(p.Fields))
		}
	}
}

func TestBuiltinDialectsShareNoAnchors(t *testing.T) {
	owner := map[string]string{}
	for _, p := range Builtin().Profiles() {
		for _, a := range p.Anchors() {
			if other, ok := owner[a]; ok {
				t.Errorf("anchor %q used by both %s and %s", a, other, p.Name)
			}
			owner[a] = p.Name
		}
	}
}

func TestLoadCustomDialect(t *testing.T) {
	content := `name: vanguard
lexicon: english-short
months:
  sept.: "09"
scope:
  anchor: "Acct"
  key_offset: 1
  normalize: digits
  valid: digits
  reset_at_page_break: true
fields:
  - slot: statement_date
    anchor: "As"
    context:
      - {offset: 1, literal: "of"}
    values: [2, 3, 4]
    transform: date
  - slot: current_period_value
    anchor: "Balance"
    values: [1]
`
	path := filepath.Join(t.TempDir(), "vanguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write dialect: %v", err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if p.Name != "vanguard" || !p.Scope.ResetAtPageBreak {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.Scope.Trim != defaultTrim {
		t.Errorf("expected default trim, got %q", p.Scope.Trim)
	}
	if len(p.Fields) != 1 || p.Fields[0].Slot != models.CurrentPeriodValue {
		t.Errorf("unexpected fields %+v", p.Fields)
	}
	if p.Fields[0].TransformName() != TransformAmount {
		t.Errorf("expected default amount transform, got %s", p.Fields[0].TransformName())
	}
}

func TestLoadRejectsInvalidDialects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "scope: {anchor: Acct, key_offset: 1}\n",
			wantErr: "no name",
		},
		{
			name:    "unknown slot",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1}\nfields:\n  - {slot: balance, anchor: B, values: [1]}\n",
			wantErr: "unknown field slot",
		},
		{
			name:    "unknown transform",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1}\nfields:\n  - {slot: long_term_gain, anchor: B, values: [1], transform: money}\n",
			wantErr: "unknown transform",
		},
		{
			name:    "date arity",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1}\nfields:\n  - {slot: statement_date, anchor: B, values: [1], transform: date}\n",
			wantErr: "reads 3 value tokens",
		},
		{
			name:    "statement date as amount",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1}\nfields:\n  - {slot: statement_date, anchor: B, values: [1]}\n",
			wantErr: "must use the date transform",
		},
		{
			name:    "duplicate slot",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1}\nfields:\n  - {slot: long_term_gain, anchor: B, values: [1]}\n  - {slot: long_term_gain, anchor: C, values: [1]}\n",
			wantErr: "declared twice",
		},
		{
			name:    "scope without offset",
			content: "name: x\nscope: {anchor: Acct}\n",
			wantErr: "key_offset",
		},
		{
			name:    "unknown key rule",
			content: "name: x\nscope: {anchor: Acct, key_offset: 1, valid: hex}\n",
			wantErr: "unknown valid rule",
		},
		{
			name:    "unknown yaml field",
			content: "name: x\npriority: 3\nscope: {anchor: Acct, key_offset: 1}\n",
			wantErr: "failed to parse dialect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistrySelect(t *testing.T) {
	reg := Builtin()

	all, err := reg.Select(nil)
	if err != nil || len(all) != len(reg.Names()) {
		t.Fatalf("Select(nil) = %d profiles, %v", len(all), err)
	}

	picked, err := reg.Select([]string{"schwab", "chase"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if picked[0].Name != "schwab" || picked[1].Name != "chase" {
		t.Errorf("Select did not keep the requested order")
	}

	if _, err := reg.Select([]string{"etrade"}); err == nil {
		t.Errorf("expected error for unknown dialect")
	}

	if err := reg.Add(picked[0]); err == nil {
		t.Errorf("expected duplicate registration error")
	}
}
