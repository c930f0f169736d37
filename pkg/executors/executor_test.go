package executors

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/plan"
	"github.com/yurifrl/brokerfacts/pkg/source"
)

var statements = map[string][]string{
	"chase.pdf": {
		"Statement Period: August 1 - August 31, 2024",
		"Acct # 1111 TOTAL ACCOUNT VALUE $1,000.00 $1,500.25",
	},
	"schwab.pdf": {
		"Account Number: 9876-2222 Statement Period August 1-31, 2024 Ending Value $300.00",
	},
	"letter.pdf": {"Dear investor"},
}

func memoryOpener() source.Opener {
	return source.OpenerFunc(func(path string) (source.Document, error) {
		texts, ok := statements[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		var pages source.Pages
		for i, text := range texts {
			pages = append(pages, models.NewPage(i, strings.Fields(text)...))
		}
		return pages, nil
	})
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	created  []transaction.PayloadTransaction
}

func (f *fakeLedger) Balances(_ string, ids []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, id := range ids {
		out[id] = f.balances[id]
	}
	return out, nil
}

func (f *fakeLedger) CreateTransactions(_ string, payloads []transaction.PayloadTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, payloads...)
	return nil
}

func newExecutor(ledger Ledger) *Executor {
	cfg := &config.Config{Workers: 2, YNAB: config.YNAB{Threshold: 0.01}}
	return New(log.New(io.Discard), cfg, dialect.Builtin(), memoryOpener(), ledger)
}

func TestRunKeepsStatementOrderAndIsolatesFailures(t *testing.T) {
	ex := newExecutor(nil)
	sts := []plan.Statement{
		{File: "schwab.pdf"},
		{File: "missing.pdf"},
		{File: "chase.pdf", Dialects: []string{"chase"}},
		{File: "letter.pdf"},
		{File: "chase.pdf", Dialects: []string{"nope"}},
	}

	batch, err := ex.Run(context.Background(), sts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(batch.Outcomes) != len(sts) {
		t.Fatalf("expected %d outcomes, got %d", len(sts), len(batch.Outcomes))
	}
	if got := batch.Outcomes[0].Result.Dialect; got != "schwab" {
		t.Errorf("outcome 0: expected schwab, got %q", got)
	}
	if batch.Outcomes[1].Err == nil {
		t.Errorf("outcome 1: expected open error")
	}
	if rec, ok := batch.Outcomes[2].Result.Accounts["1111"]; !ok || rec.StatementDate.Or("") != "2024-08-31" {
		t.Errorf("outcome 2: unexpected result %+v", batch.Outcomes[2].Result)
	}
	if !batch.Outcomes[3].Result.IsEmpty() || batch.Outcomes[3].Err != nil {
		t.Errorf("outcome 3: expected empty result without error")
	}
	if batch.Outcomes[4].Err == nil {
		t.Errorf("outcome 4: expected unknown dialect error")
	}
	if batch.Failed() != 2 || len(batch.Results()) != 3 {
		t.Errorf("unexpected counts failed=%d results=%d", batch.Failed(), len(batch.Results()))
	}

	var buf bytes.Buffer
	PrintBatch(&buf, batch)
	if !strings.Contains(buf.String(), "1500.25") || !strings.Contains(buf.String(), "missing.pdf") {
		t.Errorf("unexpected batch output:\n%s", buf.String())
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newExecutor(nil).Run(ctx, []plan.Statement{{File: "chase.pdf"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPlanAndApply(t *testing.T) {
	ledger := &fakeLedger{balances: map[string]int64{"acc-1": 1000000, "acc-2": 300000}}
	ex := newExecutor(ledger)
	p := &plan.Plan{
		YNAB: plan.YNABConfig{BudgetID: "b-1", Accounts: map[string]string{"1111": "acc-1", "2222": "acc-2"}},
		Statements: []plan.Statement{
			{File: "chase.pdf"},
			{File: "schwab.pdf"},
		},
	}

	_, report, err := ex.Plan(context.Background(), p)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if report.AdjustCount() != 1 || report.InSyncCount() != 1 {
		t.Fatalf("unexpected report %+v", report.Items)
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	if !strings.Contains(buf.String(), "1 adjustment(s) will be created") {
		t.Errorf("unexpected report output:\n%s", buf.String())
	}

	n, err := ex.Apply(p, report)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n != 1 || len(ledger.created) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(ledger.created))
	}
	if ledger.created[0].AccountID != "acc-1" || ledger.created[0].Amount != 500250 {
		t.Errorf("unexpected transaction %+v", ledger.created[0])
	}
}

func TestPlanWithoutLedger(t *testing.T) {
	if _, _, err := newExecutor(nil).Plan(context.Background(), &plan.Plan{}); !errors.Is(err, ErrNoLedger) {
		t.Errorf("expected ErrNoLedger, got %v", err)
	}
}
