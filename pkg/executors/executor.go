// Package executors runs extraction over many statements and pushes the results
// to YNAB.
package executors

import (
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/source"
)

// Ledger is the part of YNAB the executors talk to.
type Ledger interface {
	Balances(budgetID string, accountIDs []string) (map[string]int64, error)
	CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error
}

type Executor struct {
	logger   *log.Logger
	config   *config.Config
	dialects *dialect.Registry
	opener   source.Opener
	ledger   Ledger
}

// New builds an executor. ledger may be nil when nothing is synced to YNAB.
func New(logger *log.Logger, config *config.Config, dialects *dialect.Registry, opener source.Opener, ledger Ledger) *Executor {
	return &Executor{
		logger:   logger,
		config:   config,
		dialects: dialects,
		opener:   opener,
		ledger:   ledger,
	}
}
