// Package report computes the financial report and dashboard aggregates
// from already-fetched bookkeeping records.
package report

import (
	"cmp"
	"slices"

	"bizdash/internal/core"

	"github.com/shopspring/decimal"
)

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
	Color    string          `json:"color,omitempty"`
}

type AccountBalance struct {
	Account string           `json:"account"`
	Balance decimal.Decimal  `json:"balance"`
	Type    core.AccountType `json:"type"`
}

type MonthTrend struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type Report struct {
	Period              Period           `json:"period"`
	Range               core.Range       `json:"range"`
	TotalIncome         decimal.Decimal  `json:"totalIncome"`
	TotalExpenses       decimal.Decimal  `json:"totalExpenses"`
	NetIncome           decimal.Decimal  `json:"netIncome"`
	TransactionCount    int              `json:"transactionCount"`
	CategoriesBreakdown []CategoryTotal  `json:"categoriesBreakdown"`
	AccountsBalance     []AccountBalance `json:"accountsBalance"`
	MonthlyTrends       []MonthTrend     `json:"monthlyTrends"`
}

// TotalBalance sums the balances of the reported accounts.
func (r Report) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.AccountsBalance {
		total = total.Add(a.Balance)
	}
	return total
}

// Aggregate computes a Report from transactions and active accounts. The
// caller decides which transactions belong to the report; transfers are
// counted but contribute to neither income nor expenses.
//
// Categories are grouped by name in first-seen order and sorted by amount
// descending; equal amounts keep first-seen order. Uncategorized
// transactions are left out of the breakdown. Monthly trends cover every
// month of rng, even empty ones, when rng is set.
func Aggregate(txs []core.Transaction, accounts []core.Account, rng core.Range) Report {
	r := Report{
		Range:               rng,
		TotalIncome:         decimal.Zero,
		TotalExpenses:       decimal.Zero,
		TransactionCount:    len(txs),
		CategoriesBreakdown: []CategoryTotal{},
		AccountsBalance:     make([]AccountBalance, 0, len(accounts)),
		MonthlyTrends:       []MonthTrend{},
	}

	trendIdx := map[string]int{}
	for _, m := range rng.Months() {
		key := m.Format("2006-01")
		trendIdx[key] = len(r.MonthlyTrends)
		r.MonthlyTrends = append(r.MonthlyTrends, MonthTrend{Month: key, Income: decimal.Zero, Expenses: decimal.Zero})
	}
	trend := func(d core.Date) *MonthTrend {
		key := d.Format("2006-01")
		i, ok := trendIdx[key]
		if !ok {
			i = len(r.MonthlyTrends)
			trendIdx[key] = i
			r.MonthlyTrends = append(r.MonthlyTrends, MonthTrend{Month: key, Income: decimal.Zero, Expenses: decimal.Zero})
		}
		return &r.MonthlyTrends[i]
	}

	catIdx := map[string]int{}
	for _, t := range txs {
		switch t.Type {
		case core.TypeIncome:
			r.TotalIncome = r.TotalIncome.Add(t.Amount)
			if !t.TransactionDate.IsZero() {
				m := trend(t.TransactionDate)
				m.Income = m.Income.Add(t.Amount)
			}
		case core.TypeExpense:
			r.TotalExpenses = r.TotalExpenses.Add(t.Amount)
			if !t.TransactionDate.IsZero() {
				m := trend(t.TransactionDate)
				m.Expenses = m.Expenses.Add(t.Amount)
			}
		}

		if t.Category == nil {
			continue
		}
		i, ok := catIdx[t.Category.Name]
		if !ok {
			i = len(r.CategoriesBreakdown)
			catIdx[t.Category.Name] = i
			r.CategoriesBreakdown = append(r.CategoriesBreakdown, CategoryTotal{
				Category: t.Category.Name,
				Amount:   decimal.Zero,
				Color:    t.Category.Color,
			})
		}
		r.CategoriesBreakdown[i].Amount = r.CategoriesBreakdown[i].Amount.Add(t.Amount)
		r.CategoriesBreakdown[i].Count++
	}
	r.NetIncome = r.TotalIncome.Sub(r.TotalExpenses)

	slices.SortStableFunc(r.CategoriesBreakdown, func(a, b CategoryTotal) int {
		return b.Amount.Cmp(a.Amount)
	})
	slices.SortStableFunc(r.MonthlyTrends, func(a, b MonthTrend) int {
		return cmp.Compare(a.Month, b.Month)
	})

	for _, a := range accounts {
		r.AccountsBalance = append(r.AccountsBalance, AccountBalance{
			Account: a.Name,
			Balance: a.CurrentBalance,
			Type:    a.Type,
		})
	}
	return r
}
