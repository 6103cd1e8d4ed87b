package report

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const dashboardListSize = 5

// DashboardSource supplies the records behind the dashboard summary.
type DashboardSource interface {
	Source
	CountTransactions(ctx context.Context, status core.TransactionStatus) (int, error)
	OverdueInvoices(ctx context.Context) (int, error)
	RecentTransactions(ctx context.Context, n int) ([]core.Transaction, error)
	ActiveBudgets(ctx context.Context, n int) ([]core.Budget, error)
}

type BudgetProgress struct {
	core.Budget
	Percentage decimal.Decimal   `json:"percentage"`
	Progress   decimal.Decimal   `json:"progress"`
	Health     core.BudgetHealth `json:"health"`
	Expired    bool              `json:"expired"`
}

type Dashboard struct {
	TotalBalance        decimal.Decimal    `json:"totalBalance"`
	MonthlyIncome       decimal.Decimal    `json:"monthlyIncome"`
	MonthlyExpenses     decimal.Decimal    `json:"monthlyExpenses"`
	PendingTransactions int                `json:"pendingTransactions"`
	OverdueInvoices     int                `json:"overdueInvoices"`
	RecentTransactions  []core.Transaction `json:"recentTransactions"`
	Budgets             []BudgetProgress   `json:"budgets"`
}

// BuildDashboard loads every dashboard figure concurrently. Monthly figures
// cover paid transactions from the first of the current month onwards.
func BuildDashboard(ctx context.Context, src DashboardSource, now time.Time) (Dashboard, error) {
	var (
		d        Dashboard
		accounts []core.Account
		monthTxs []core.Transaction
		budgets  []core.Budget
	)
	since := core.Range{Start: core.MonthStart(core.DateOf(now)), End: core.NewDate(9999, 12, 31)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = src.ListAccounts(gctx, true)
		return wrap("load accounts", err)
	})
	g.Go(func() (err error) {
		monthTxs, err = src.PaidTransactions(gctx, since)
		return wrap("load monthly transactions", err)
	})
	g.Go(func() (err error) {
		d.PendingTransactions, err = src.CountTransactions(gctx, core.StatusPending)
		return wrap("count pending transactions", err)
	})
	g.Go(func() (err error) {
		d.OverdueInvoices, err = src.OverdueInvoices(gctx)
		return wrap("count overdue invoices", err)
	})
	g.Go(func() (err error) {
		d.RecentTransactions, err = src.RecentTransactions(gctx, dashboardListSize)
		return wrap("load recent transactions", err)
	})
	g.Go(func() (err error) {
		budgets, err = src.ActiveBudgets(gctx, dashboardListSize)
		return wrap("load budgets", err)
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("build dashboard: %w", err)
	}

	monthly := Aggregate(monthTxs, accounts, core.Range{})
	d.TotalBalance = monthly.TotalBalance()
	d.MonthlyIncome = monthly.TotalIncome
	d.MonthlyExpenses = monthly.TotalExpenses
	if d.RecentTransactions == nil {
		d.RecentTransactions = []core.Transaction{}
	}
	d.Budgets = make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		d.Budgets = append(d.Budgets, BudgetProgress{
			Budget:     b,
			Percentage: b.Percentage().Round(1),
			Progress:   b.Progress().Round(1),
			Health:     b.Health(),
			Expired:    b.Expired(now),
		})
	}
	return d, nil
}

func wrap(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
