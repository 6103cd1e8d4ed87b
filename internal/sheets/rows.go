package sheets

import (
	"time"

	"bizdash/internal/format"
	"bizdash/internal/report"

	"github.com/shopspring/decimal"
)

// ReportRows lays rep out as one block: a title row, the totals, then the
// category, account and monthly sections, and a blank separator row.
// Amounts are written as plain numbers so the sheet can compute with them;
// a formatted copy sits next to each for reading.
func ReportRows(rep report.Report, f *format.Formatter, jobID string, generatedAt time.Time) [][]any {
	money := func(d decimal.Decimal) []any {
		return []any{d.StringFixed(2), f.Currency(d, "")}
	}

	rows := [][]any{
		{"Report", string(rep.Period), f.Date(rep.Range.Start.String()), f.Date(rep.Range.End.String()), generatedAt.UTC().Format(time.RFC3339), jobID},
		append([]any{"Total income"}, money(rep.TotalIncome)...),
		append([]any{"Total expenses"}, money(rep.TotalExpenses)...),
		append([]any{"Net income"}, money(rep.NetIncome)...),
		{"Transactions", rep.TransactionCount},
	}

	if len(rep.CategoriesBreakdown) > 0 {
		rows = append(rows, []any{"Category", "Amount", "Formatted", "Count"})
		for _, c := range rep.CategoriesBreakdown {
			row := append([]any{c.Category}, money(c.Amount)...)
			rows = append(rows, append(row, c.Count))
		}
	}

	if len(rep.AccountsBalance) > 0 {
		rows = append(rows, []any{"Account", "Balance", "Formatted", "Type"})
		for _, a := range rep.AccountsBalance {
			row := append([]any{a.Account}, money(a.Balance)...)
			rows = append(rows, append(row, string(a.Type)))
		}
		rows = append(rows, append([]any{"Total balance"}, money(rep.TotalBalance())...))
	}

	if len(rep.MonthlyTrends) > 0 {
		rows = append(rows, []any{"Month", "Income", "Expenses"})
		for _, m := range rep.MonthlyTrends {
			rows = append(rows, []any{m.Month, m.Income.StringFixed(2), m.Expenses.StringFixed(2)})
		}
	}

	return append(rows, []any{})
}
