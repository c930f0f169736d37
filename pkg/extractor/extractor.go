// Package extractor drives the page scanner over a whole document.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/registry"
	"github.com/yurifrl/brokerfacts/pkg/scanner"
	"github.com/yurifrl/brokerfacts/pkg/source"
)

var (
	ErrDocumentOpen = errors.New("failed to open document")
	ErrDocumentRead = errors.New("failed to read document")
)

// Extractor holds no per-document state; Extract can be called concurrently.
type Extractor struct {
	logger   *log.Logger
	opener   source.Opener
	profiles []*dialect.Profile
}

// New returns an extractor trying profiles in the given order.
func New(logger *log.Logger, opener source.Opener, profiles ...*dialect.Profile) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{
		logger:   logger,
		opener:   opener,
		profiles: profiles,
	}
}

// run is one dialect's pass over a document.
type run struct {
	profile *dialect.Profile
	reg     *registry.Registry
	scan    *scanner.Scanner
}

func (e *Extractor) newRuns() []run {
	runs := make([]run, 0, len(e.profiles))
	for _, p := range e.profiles {
		reg := registry.New()
		runs = append(runs, run{profile: p, reg: reg, scan: scanner.New(e.logger, p, reg)})
	}
	return runs
}

// Extract opens path, scans every page in order with each dialect and returns
// the result of the first dialect that found an account. The document is closed
// before Extract returns, whatever happens while reading it.
func (e *Extractor) Extract(ctx context.Context, path string) (result models.Result, err error) {
	doc, err := e.opener.Open(path)
	if err != nil {
		return models.Result{}, fmt.Errorf("%w: %s: %w", ErrDocumentOpen, path, err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			e.logger.Warn("failed to close document", "file", path, "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			result = models.Result{}
			err = fmt.Errorf("%w: %s: %v", ErrDocumentRead, path, r)
		}
	}()

	runs := e.newRuns()
	for i := 0; i < doc.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return models.Result{}, fmt.Errorf("%w: %s: %w", ErrDocumentRead, path, err)
		}
		page, err := doc.Page(i)
		if err != nil {
			return models.Result{}, fmt.Errorf("%w: %s: page %d: %w", ErrDocumentRead, path, i, err)
		}
		for _, r := range runs {
			r.scan.ScanPage(page)
		}
	}

	return e.finish(filepath.Base(path), runs), nil
}

// ExtractPages runs the extraction over pages that were already tokenized.
func (e *Extractor) ExtractPages(name string, pages []models.Page) models.Result {
	runs := e.newRuns()
	for _, page := range pages {
		for _, r := range runs {
			r.scan.ScanPage(page)
		}
	}
	return e.finish(name, runs)
}

func (e *Extractor) finish(name string, runs []run) models.Result {
	for _, r := range runs {
		if r.reg.Len() == 0 {
			e.logger.Debug("dialect found no accounts", "file", name, "dialect", r.profile.Name)
			continue
		}
		total := r.scan.Total()
		e.logger.Info("extracted statement",
			"file", name,
			"dialect", r.profile.Name,
			"accounts", r.reg.Len(),
			"date", r.scan.Date(),
			"slots", total.Slots,
			"malformed_keys", total.Malformed,
		)
		return models.Result{
			Document: name,
			Dialect:  r.profile.Name,
			Accounts: r.reg.Finalize(r.scan.Date()),
		}
	}
	e.logger.Info("no account found", "file", name, "dialects", len(runs))
	return models.Result{Document: name, Accounts: map[models.AccountKey]models.AccountRecord{}}
}
