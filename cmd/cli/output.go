package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/k0kubun/pp/v3"
	"gopkg.in/yaml.v3"

	"github.com/yurifrl/brokerfacts/pkg/csv"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/executors"
	"github.com/yurifrl/brokerfacts/pkg/models"
)

func render(w io.Writer, format string, results []models.Result) error {
	switch format {
	case "", "table":
		_, err := fmt.Fprintln(w, executors.ResultTable(results...))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(results)
	case "csv":
		_, err := w.Write(csv.Results(nil, results...))
		return err
	case "pp":
		_, err := pp.Fprintln(w, results)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func dialectTable(reg *dialect.Registry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("name", "description", "key rule", "anchors")
	for _, p := range reg.Profiles() {
		anchors := ""
		for i, a := range p.Anchors() {
			if i > 0 {
				anchors += " "
			}
			anchors += a
		}
		t.Row(p.Name, p.Description, p.Scope.Rule(), anchors)
	}
	return t.String()
}
