package executors

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yurifrl/brokerfacts/pkg/csv"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/reconcile"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	syncedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	adjustStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// ResultTable renders the accounts of results, one row per account.
func ResultTable(results ...models.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(csv.Header()...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, f := range csv.Facts(results...) {
		t.Row(f.Columns()...)
	}
	return t.String()
}

// PrintBatch writes the accounts found by a batch followed by its failures.
func PrintBatch(w io.Writer, b *Batch) {
	fmt.Fprintf(w, "Run %s\n", b.ID)
	fmt.Fprintln(w, ResultTable(b.Results()...))
	for _, o := range b.Outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("! %s: %v", o.File, o.Err)))
		case o.Result.IsEmpty():
			fmt.Fprintln(w, skipStyle.Render(fmt.Sprintf("? %s: no account found", o.File)))
		}
	}
}

// PrintReport writes a reconciliation preview.
func PrintReport(w io.Writer, r *reconcile.Report) {
	for _, e := range r.Items {
		switch e.Status {
		case reconcile.InSync:
			line := fmt.Sprintf("%s | %-6s | %s | %s | %s", e.Date, e.Ref(), e.AccountID, e.Statement.StringFixed(2), e.Balance.StringFixed(2))
			fmt.Fprintln(w, syncedStyle.Render("= "+line))
		case reconcile.Adjust:
			line := fmt.Sprintf("%s | %-6s | %s | %s -> %s (%s)", e.Date, e.Ref(), e.AccountID, e.Balance.StringFixed(2), e.Statement.StringFixed(2), e.Difference().StringFixed(2))
			fmt.Fprintln(w, adjustStyle.Render("+ "+line))
		default:
			line := fmt.Sprintf("%s | %-6s | %s | %s", e.Date, e.Ref(), e.Document, e.Status)
			fmt.Fprintln(w, skipStyle.Render("? "+line))
		}
	}

	if r.AdjustCount() == 0 {
		fmt.Fprintf(w, "\nPlan: All %d account(s) are in sync\n", r.InSyncCount())
	} else {
		fmt.Fprintf(w, "\nPlan: %d adjustment(s) will be created, %d already in sync, %d skipped\n", r.AdjustCount(), r.InSyncCount(), r.SkippedCount())
	}
}
