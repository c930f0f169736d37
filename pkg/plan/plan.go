// Package plan reads the YAML list of statements processed by batch and sync.
package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type YNABConfig struct {
	BudgetID string `yaml:"budget_id"`
	TokenEnv string `yaml:"token_env"`
	// Accounts maps statement account keys to YNAB account ids.
	Accounts map[string]string `yaml:"accounts"`
}

type Plan struct {
	YNAB       YNABConfig  `yaml:"ynab"`
	Statements []Statement `yaml:"statements"`
}

// Statement is one document to extract. Dialects narrows the dialects tried;
// empty means every configured dialect.
type Statement struct {
	File     string   `yaml:"file"`
	Dialects []string `yaml:"dialects"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if len(p.Statements) == 0 {
		return nil, fmt.Errorf("plan has no statements")
	}
	for i, st := range p.Statements {
		if st.File == "" {
			return nil, fmt.Errorf("statement %d has no file", i+1)
		}
	}
	return &p, nil
}

// Path returns the statement file with a leading ~ expanded.
func (s Statement) Path() string {
	if s.File == "~" || strings.HasPrefix(s.File, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(s.File, "~"))
		}
	}
	return s.File
}

// Token reads the YNAB token from the environment variable named by the plan.
func (y YNABConfig) Token() string {
	if y.TokenEnv == "" {
		return ""
	}
	return os.Getenv(y.TokenEnv)
}

func (p *Plan) Print(w io.Writer) {
	if p.YNAB.BudgetID != "" {
		fmt.Fprintf(w, "YNAB budget: %s\n", p.YNAB.BudgetID)
	}
	for i, st := range p.Statements {
		dialects := "any"
		if len(st.Dialects) > 0 {
			dialects = strings.Join(st.Dialects, ",")
		}
		fmt.Fprintf(w, "[%d] file=%s dialects=%s\n", i+1, st.File, dialects)
	}
}
