// Package reconcile compares the period-end values extracted from statements
// with the balances of the YNAB tracking accounts they feed. It has no I/O so
// the CLI sync command and the server can share it.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/brokerfacts/pkg/models"
)

// Status is the reconciliation outcome for one statement account.
//
//   - InSync:   the YNAB balance matches the statement value.
//   - Adjust:   an adjustment transaction is needed.
//   - Unmapped: no YNAB account is configured for the statement account.
//   - NoValue:  the statement gave no current period value.
//   - Ambiguous: only a bare key mapping exists and accounts of several
//     dialects share that key.
type Status int

const (
	InSync Status = iota
	Adjust
	Unmapped
	NoValue
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case InSync:
		return "in_sync"
	case Adjust:
		return "adjust"
	case Unmapped:
		return "unmapped"
	case NoValue:
		return "no_value"
	case Ambiguous:
		return "ambiguous"
	}
	return "unknown"
}

const milli = 1000

// Ref names a statement account across documents. Account keys are short
// and only unique within one document, so the dialect is part of the identity.
type Ref struct {
	Dialect string
	Key     models.AccountKey
}

// String renders "dialect/key", or the bare key when the dialect is unknown.
func (r Ref) String() string {
	if r.Dialect == "" {
		return string(r.Key)
	}
	return r.Dialect + "/" + string(r.Key)
}

// Entry links a statement account with its YNAB account.
type Entry struct {
	Document  string
	Dialect   string
	Account   models.AccountKey
	AccountID string
	Date      string
	Statement decimal.Decimal
	Balance   decimal.Decimal
	Status    Status
}

func (e Entry) Ref() Ref {
	return Ref{Dialect: e.Dialect, Key: e.Account}
}

// Difference is the amount to add to the YNAB balance.
func (e Entry) Difference() decimal.Decimal {
	return e.Statement.Sub(e.Balance)
}

type Report struct {
	Items []Entry
}

// Accounts maps statement accounts to YNAB account ids. A mapping key is
// either "dialect/key" or the bare account key. Keys are matched
// case-insensitively since config loaders lower-case map keys.
type Accounts map[string]string

func (a Accounts) get(name string) (string, bool) {
	if id, ok := a[name]; ok {
		return id, true
	}
	id, ok := a[strings.ToLower(name)]
	return id, ok
}

// Lookup prefers the dialect-qualified mapping of ref. qualified is false when
// the id came from the bare key.
func (a Accounts) Lookup(ref Ref) (id string, qualified, ok bool) {
	if ref.Dialect != "" {
		if id, ok := a.get(ref.String()); ok {
			return id, true, true
		}
	}
	id, ok = a.get(string(ref.Key))
	return id, false, ok
}

// IDs returns the mapped YNAB account ids that appear in results.
func (a Accounts) IDs(results []models.Result) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range results {
		for _, key := range r.Keys() {
			if id, _, ok := a.Lookup(Ref{Dialect: r.Dialect, Key: key}); ok && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Statement is the record an account's reconciliation is based on.
type Statement struct {
	Document string
	Record   models.AccountRecord
}

// Latest keeps, for every dialect and account key, the record with the most
// recent statement date. Records without a date lose to dated ones.
func Latest(results []models.Result) map[Ref]Statement {
	out := map[Ref]Statement{}
	for _, r := range results {
		for _, key := range r.Keys() {
			ref := Ref{Dialect: r.Dialect, Key: key}
			rec := r.Accounts[key]
			if prev, ok := out[ref]; ok && prev.Record.StatementDate.Or("") >= rec.StatementDate.Or("") {
				continue
			}
			out[ref] = Statement{Document: r.Document, Record: rec}
		}
	}
	return out
}

// Build compares each account's latest current period value with the YNAB
// balance (in milliunits) of the mapped account. Differences smaller than
// threshold count as in sync.
func Build(results []models.Result, accounts Accounts, balances map[string]int64, threshold float64) *Report {
	latest := Latest(results)
	refs := make([]Ref, 0, len(latest))
	shared := map[models.AccountKey]int{}
	for ref := range latest {
		refs = append(refs, ref)
		shared[ref.Key]++
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Key != refs[j].Key {
			return refs[i].Key < refs[j].Key
		}
		return refs[i].Dialect < refs[j].Dialect
	})

	limit := decimal.NewFromFloat(threshold)
	items := make([]Entry, 0, len(refs))
	for _, ref := range refs {
		l := latest[ref]
		e := Entry{
			Document: l.Document,
			Dialect:  ref.Dialect,
			Account:  ref.Key,
			Date:     l.Record.StatementDate.Or(""),
		}

		id, qualified, ok := accounts.Lookup(ref)
		value, hasValue := l.Record.CurrentPeriodValue.Get()
		switch {
		case !ok:
			e.Status = Unmapped
		case !qualified && shared[ref.Key] > 1:
			e.Status = Ambiguous
		case !hasValue:
			e.AccountID = id
			e.Status = NoValue
		default:
			e.AccountID = id
			e.Statement = decimal.NewFromFloat(value).Round(2)
			e.Balance = decimal.New(balances[id], 0).Div(decimal.New(milli, 0))
			e.Status = InSync
			if e.Difference().Abs().GreaterThanOrEqual(limit) && !e.Difference().IsZero() {
				e.Status = Adjust
			}
		}
		items = append(items, e)
	}
	return &Report{Items: items}
}

func (r *Report) count(s Status) int {
	n := 0
	for _, e := range r.Items {
		if e.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) InSyncCount() int { return r.count(InSync) }

func (r *Report) AdjustCount() int { return r.count(Adjust) }

func (r *Report) SkippedCount() int {
	return r.count(Unmapped) + r.count(NoValue) + r.count(Ambiguous)
}

// Payloads converts every Adjust entry into a YNAB transaction dated on the
// statement date. today is used when the statement carried no date.
func (r *Report) Payloads(today string) ([]transaction.PayloadTransaction, error) {
	var out []transaction.PayloadTransaction
	for _, e := range r.Items {
		if e.Status != Adjust {
			continue
		}
		day := e.Date
		if day == "" {
			day = today
		}
		date, err := api.DateFromString(day)
		if err != nil {
			return nil, fmt.Errorf("account %s: invalid date %q: %w", e.Ref(), day, err)
		}
		payee := "Market Adjustment"
		memo := fmt.Sprintf("brokerfacts %s %s", e.Document, e.Ref())
		out = append(out, transaction.PayloadTransaction{
			AccountID: e.AccountID,
			Date:      date,
			Amount:    e.Difference().Mul(decimal.New(milli, 0)).Round(0).IntPart(),
			Cleared:   transaction.ClearingStatusCleared,
			Approved:  true,
			PayeeName: &payee,
			Memo:      &memo,
		})
	}
	return out, nil
}
