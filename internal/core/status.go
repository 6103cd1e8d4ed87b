package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetHealth buckets a budget's consumption.
type BudgetHealth string

const (
	HealthExcellent BudgetHealth = "excellent"
	HealthGood      BudgetHealth = "good"
	HealthWarning   BudgetHealth = "warning"
	HealthExceeded  BudgetHealth = "exceeded"
)

var hundred = decimal.NewFromInt(100)

// Percentage is spent/amount*100, or zero when the ceiling is not positive.
func (b Budget) Percentage() decimal.Decimal {
	if !b.Amount.IsPositive() {
		return decimal.Zero
	}
	return b.SpentAmount.Div(b.Amount).Mul(hundred)
}

// Progress is Percentage capped at 100, for progress bars.
func (b Budget) Progress() decimal.Decimal {
	return decimal.Min(b.Percentage(), hundred)
}

func (b Budget) Health() BudgetHealth {
	p := b.Percentage()
	switch {
	case p.GreaterThanOrEqual(hundred):
		return HealthExceeded
	case p.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return HealthWarning
	case p.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return HealthGood
	default:
		return HealthExcellent
	}
}

// Expired reports whether the budget's end date is before today.
func (b Budget) Expired(now time.Time) bool {
	return b.EndDate.Before(DateOf(now).Time)
}

// DisplayStatus shows sent invoices past their due date as overdue.
func (i Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceSent && i.DueDate.Before(DateOf(now).Time) {
		return InvoiceOverdue
	}
	return i.Status
}

// DaysOverdue counts whole days past the due date; zero when not overdue.
func (i Invoice) DaysOverdue(now time.Time) int {
	today := DateOf(now)
	if i.Status == InvoicePaid || i.Status == InvoiceCancelled || !i.DueDate.Before(today.Time) {
		return 0
	}
	return int(today.Sub(i.DueDate.Time).Hours() / 24)
}

// Outstanding reports whether the invoice still awaits payment and its due
// date has passed. Drafts count, matching the dashboard's overdue tally.
func (i Invoice) Outstanding(now time.Time) bool {
	if i.Status != InvoiceSent && i.Status != InvoiceDraft {
		return false
	}
	return i.DueDate.Before(DateOf(now).Time)
}
