package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yurifrl/brokerfacts/pkg/plan"
	"github.com/yurifrl/brokerfacts/pkg/reconcile"
)

var ErrNoLedger = errors.New("no YNAB client configured")

// Plan extracts every statement of p and compares the current values with the
// YNAB balances of the mapped accounts.
func (e *Executor) Plan(ctx context.Context, p *plan.Plan) (*Batch, *reconcile.Report, error) {
	if e.ledger == nil {
		return nil, nil, ErrNoLedger
	}
	batch, err := e.Run(ctx, p.Statements)
	if err != nil {
		return nil, nil, err
	}

	results := batch.Results()
	accounts := reconcile.Accounts(e.accounts(p))
	balances, err := e.ledger.Balances(e.budgetID(p), accounts.IDs(results))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch balances: %w", err)
	}

	threshold := 0.0
	if e.config != nil {
		threshold = e.config.YNAB.Threshold
	}
	report := reconcile.Build(results, accounts, balances, threshold)
	e.logger.Debug("processing plan report",
		"total", len(report.Items),
		"in_sync", report.InSyncCount(),
		"to_adjust", report.AdjustCount(),
		"skipped", report.SkippedCount(),
	)
	return batch, report, nil
}

// Apply creates one adjustment transaction per out-of-sync account.
func (e *Executor) Apply(p *plan.Plan, report *reconcile.Report) (int, error) {
	if e.ledger == nil {
		return 0, ErrNoLedger
	}
	e.logger.Debug("applying plan")

	batch, err := report.Payloads(time.Now().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := e.ledger.CreateTransactions(e.budgetID(p), batch); err != nil {
		return 0, fmt.Errorf("failed to create transactions: %w", err)
	}
	e.logger.Info("created transactions", "count", len(batch))
	return len(batch), nil
}

// budgetID prefers the plan's budget over the configured one.
func (e *Executor) budgetID(p *plan.Plan) string {
	if p.YNAB.BudgetID != "" || e.config == nil {
		return p.YNAB.BudgetID
	}
	return e.config.YNAB.BudgetID
}

func (e *Executor) accounts(p *plan.Plan) map[string]string {
	out := map[string]string{}
	if e.config != nil {
		for k, v := range e.config.YNAB.Accounts {
			out[k] = v
		}
	}
	for k, v := range p.YNAB.Accounts {
		out[k] = v
	}
	return out
}
