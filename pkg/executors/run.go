package executors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yurifrl/brokerfacts/pkg/extractor"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/plan"
)

// Outcome is the extraction of one statement in a batch.
type Outcome struct {
	File     string
	Result   models.Result
	Err      error
	Duration time.Duration
}

// Batch groups the outcomes of one Run, in statement order.
type Batch struct {
	ID       uuid.UUID
	Outcomes []Outcome
}

// Results returns the successful results.
func (b *Batch) Results() []models.Result {
	var out []models.Result
	for _, o := range b.Outcomes {
		if o.Err == nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Failed counts statements that could not be read.
func (b *Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Run extracts every statement with at most config.Workers documents in
// flight. A failing statement is recorded in its Outcome and does not stop the
// others; only cancellation of ctx ends the batch early.
func (e *Executor) Run(ctx context.Context, statements []plan.Statement) (*Batch, error) {
	batch := &Batch{ID: uuid.New(), Outcomes: make([]Outcome, len(statements))}
	logger := e.logger.With("run", batch.ID)

	workers := 1
	if e.config != nil && e.config.Workers > 0 {
		workers = e.config.Workers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, st := range statements {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch.Outcomes[i] = e.extract(ctx, st)
			if err := batch.Outcomes[i].Err; err != nil {
				logger.Warn("failed to extract statement", "file", st.File, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batch, err
	}

	logger.Info("batch finished", "statements", len(statements), "failed", batch.Failed())
	return batch, nil
}

func (e *Executor) extract(ctx context.Context, st plan.Statement) Outcome {
	start := time.Now()
	out := Outcome{File: st.Path()}

	profiles, err := e.dialects.Select(st.Dialects)
	if err != nil {
		out.Err = err
		return out
	}
	ex := extractor.New(e.logger, e.opener, profiles...)
	out.Result, out.Err = ex.Extract(ctx, st.Path())
	out.Duration = time.Since(start)
	return out
}
