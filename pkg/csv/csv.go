package csv

import (
	"bytes"
	stdcsv "encoding/csv"

	"github.com/yurifrl/brokerfacts/pkg/models"
)

// Record is anything that renders as one CSV row.
type Record interface {
	Columns() []string
}

type FilterFunc[T Record] func(T) bool

// Create renders header followed by every record accepted by filter.
func Create[T Record](header []string, records []T, filter FilterFunc[T]) []byte {
	var buf bytes.Buffer
	w := stdcsv.NewWriter(&buf)
	w.Write(header)
	for _, r := range records {
		if filter == nil || filter(r) {
			w.Write(r.Columns())
		}
	}
	w.Flush()
	return buf.Bytes()
}

// Fact is one extracted account with the document it came from.
type Fact struct {
	Document string
	Dialect  string
	Record   models.AccountRecord
}

func (f Fact) Columns() []string {
	cols := []string{f.Document, f.Dialect, string(f.Record.Key)}
	for _, slot := range models.FieldSlots {
		cols = append(cols, f.Record.Column(slot))
	}
	return cols
}

// Header names the Fact columns.
func Header() []string {
	h := []string{"document", "dialect", "account"}
	for _, slot := range models.FieldSlots {
		h = append(h, slot.String())
	}
	return h
}

// Facts flattens results in document then account order.
func Facts(results ...models.Result) []Fact {
	var out []Fact
	for _, r := range results {
		for _, rec := range r.Records() {
			out = append(out, Fact{Document: r.Document, Dialect: r.Dialect, Record: rec})
		}
	}
	return out
}

// Results renders results as CSV, keeping the facts accepted by filter.
func Results(filter FilterFunc[Fact], results ...models.Result) []byte {
	return Create(Header(), Facts(results...), filter)
}
