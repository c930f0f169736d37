package extractor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/source"
)

// fakeDocument counts Close calls and can fail or panic on a given page.
type fakeDocument struct {
	pages     []models.Page
	failAt    int
	panicAt   int
	closed    int
	pagesRead int
}

func newFake(texts ...string) *fakeDocument {
	d := &fakeDocument{failAt: -1, panicAt: -1}
	for i, text := range texts {
		d.pages = append(d.pages, models.NewPage(i, strings.Fields(text)...))
	}
	return d
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) Page(i int) (models.Page, error) {
	if i == d.failAt {
		return models.Page{}, errors.New("corrupt content stream")
	}
	if i == d.panicAt {
		panic("unexpected operator")
	}
	d.pagesRead++
	return d.pages[i], nil
}

func (d *fakeDocument) Close() error {
	d.closed++
	return nil
}

func opener(doc *fakeDocument) source.Opener {
	return source.OpenerFunc(func(string) (source.Document, error) {
		return doc, nil
	})
}

func profiles(t *testing.T, names ...string) []*dialect.Profile {
	t.Helper()
	ps, err := dialect.Builtin().Select(names)
	if err != nil {
		t.Fatal(err)
	}
	return ps
}

func newExtractor(t *testing.T, o source.Opener, names ...string) *Extractor {
	return New(log.New(io.Discard), o, profiles(t, names...)...)
}

func TestExtractBackfillsDateFromMiddlePage(t *testing.T) {
	doc := newFake(
		"Acct # 1111 TOTAL ACCOUNT VALUE $1.00 $2.00",
		"Acct # 2222 TOTAL ACCOUNT VALUE $3.00 $4.00",
		"Statement Period: August 1 - August 31, 2024",
		"Acct # 4444 TOTAL ACCOUNT VALUE $5.00 $6.00",
		"Acct # 5555 TOTAL ACCOUNT VALUE $7.00 $8.00",
	)
	ex := newExtractor(t, opener(doc), "chase")

	result, err := ex.Extract(context.Background(), "/statements/august.pdf")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Document != "august.pdf" || result.Dialect != "chase" {
		t.Errorf("unexpected result header %q %q", result.Document, result.Dialect)
	}
	if len(result.Accounts) != 4 {
		t.Fatalf("expected 4 accounts, got %v", result.Keys())
	}
	for key, rec := range result.Accounts {
		if d := rec.StatementDate.Or(""); d != "2024-08-31" {
			t.Errorf("%s: expected back-filled date, got %q", key, d)
		}
	}
	if doc.closed != 1 {
		t.Errorf("expected 1 close, got %d", doc.closed)
	}
}

func TestExtractNoAnchorsGivesEmptyResult(t *testing.T) {
	doc := newFake("Dear investor,", "thank you for your business")
	ex := newExtractor(t, opener(doc), "chase", "schwab")

	result, err := ex.Extract(context.Background(), "letter.pdf")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.IsEmpty() || result.Dialect != "" {
		t.Errorf("expected empty result, got %+v", result)
	}
	if doc.closed != 1 {
		t.Errorf("expected 1 close, got %d", doc.closed)
	}
}

func TestExtractPicksFirstDialectWithAccounts(t *testing.T) {
	doc := newFake(
		"Account Number: 9876-5432 Ending Value $5.00",
		"Acct # 1234 TOTAL ACCOUNT VALUE $1.00 $2.00",
	)
	ex := newExtractor(t, opener(doc), "fidelity", "schwab", "chase")

	result, err := ex.Extract(context.Background(), "mixed.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Dialect != "schwab" {
		t.Errorf("expected schwab, got %q", result.Dialect)
	}
	if _, ok := result.Accounts["5432"]; !ok {
		t.Errorf("expected account 5432, got %v", result.Keys())
	}
	if doc.pagesRead != 2 {
		t.Errorf("pages should be read once, got %d reads", doc.pagesRead)
	}
}

func TestExtractOpenError(t *testing.T) {
	ex := newExtractor(t, source.OpenerFunc(func(string) (source.Document, error) {
		return nil, errors.New("permission denied")
	}), "chase")

	_, err := ex.Extract(context.Background(), "locked.pdf")
	if !errors.Is(err, ErrDocumentOpen) {
		t.Errorf("expected ErrDocumentOpen, got %v", err)
	}
}

func TestExtractReleasesDocumentOnce(t *testing.T) {
	tests := []struct {
		name    string
		failAt  int
		panicAt int
		cancel  bool
		wantErr error
	}{
		{name: "success", failAt: -1, panicAt: -1},
		{name: "page error", failAt: 1, panicAt: -1, wantErr: ErrDocumentRead},
		{name: "panic", failAt: -1, panicAt: 2, wantErr: ErrDocumentRead},
		{name: "canceled", failAt: -1, panicAt: -1, cancel: true, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newFake("Acct # 1234", "TOTAL ACCOUNT VALUE $1.00 $2.00", "Long-Term Realized Gain/Loss $3.00 $4.00")
			doc.failAt = tt.failAt
			doc.panicAt = tt.panicAt

			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			}
			defer cancel()

			result, err := newExtractor(t, opener(doc), "chase").Extract(ctx, "statement.pdf")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if !result.IsEmpty() {
					t.Errorf("expected no partial result, got %+v", result)
				}
			}
			if doc.closed != 1 {
				t.Errorf("expected exactly 1 close, got %d", doc.closed)
			}
		})
	}
}

func TestExtractPagesIsIdempotent(t *testing.T) {
	pages := []models.Page{
		models.NewPage(0, strings.Fields("Acct # 1234 TOTAL ACCOUNT VALUE $100.00 $150.00")...),
		models.NewPage(1, strings.Fields("Statement Period: August 1 - August 31, 2024")...),
	}
	ex := newExtractor(t, nil, "chase")

	first := ex.ExtractPages("a", pages)
	second := ex.ExtractPages("a", pages)

	a, b := first.Accounts["1234"], second.Accounts["1234"]
	if a.Column(models.CurrentPeriodValue) != "150.00" || a.Column(models.PriorPeriodValue) != "100.00" {
		t.Errorf("unexpected record %+v", a)
	}
	for _, slot := range models.FieldSlots {
		if a.Column(slot) != b.Column(slot) {
			t.Errorf("%s differs between passes: %q vs %q", slot, a.Column(slot), b.Column(slot))
		}
	}
}
