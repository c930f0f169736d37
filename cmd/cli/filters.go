package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/brokerfacts/pkg/csv"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/source"
)

type filters struct {
	account   string
	startDate string
	endDate   string
}

func (f *filters) toFilterFunc() csv.FilterFunc[csv.Fact] {
	return func(fact csv.Fact) bool {
		if f.account != "" && !strings.Contains(strings.ToLower(string(fact.Record.Key)), strings.ToLower(f.account)) {
			return false
		}
		date := fact.Record.StatementDate.Or("")
		// ISO dates order lexically
		if f.startDate != "" && (date == "" || date < f.startDate) {
			return false
		}
		if f.endDate != "" && (date == "" || date > f.endDate) {
			return false
		}
		return true
	}
}

// apply drops the accounts rejected by the filters. Results left without any
// account are kept so empty documents still show up.
func (f *filters) apply(results []models.Result) []models.Result {
	keep := f.toFilterFunc()
	out := make([]models.Result, 0, len(results))
	for _, r := range results {
		filtered := models.Result{Document: r.Document, Dialect: r.Dialect, Accounts: map[models.AccountKey]models.AccountRecord{}}
		for key, rec := range r.Accounts {
			if keep(csv.Fact{Document: r.Document, Dialect: r.Dialect, Record: rec}) {
				filtered.Accounts[key] = rec
			}
		}
		out = append(out, filtered)
	}
	return out
}

// collectInputs expands globs and directories into the statement files they
// name. Directory entries with no known reader are skipped.
func collectInputs(logger *log.Logger, args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files found matching pattern %s", arg)
		}

		for _, match := range matches {
			fileInfo, err := os.Stat(match)
			if err != nil {
				logger.Warn("failed to stat file", "error", err, "file", match)
				continue
			}
			if !fileInfo.IsDir() {
				files = append(files, match)
				continue
			}

			entries, err := os.ReadDir(match)
			if err != nil {
				logger.Warn("failed to read directory", "error", err, "dir", match)
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() || !source.Supported(entry.Name()) {
					continue
				}
				files = append(files, filepath.Join(match, entry.Name()))
			}
		}
	}
	return files, nil
}
