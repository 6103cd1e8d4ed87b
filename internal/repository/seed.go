package repository

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/core"

	"github.com/shopspring/decimal"
)

// SeedDemo fills an empty store with a small, coherent bookkeeping data set
// dated around now. It is used by the memory backend.
func (r *Repository) SeedDemo(ctx context.Context, userID string, now time.Time) error {
	today := core.DateOf(now)
	month := core.MonthStart(today)
	amt := decimal.RequireFromString

	checking, err := r.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "Conta Corrente", Type: core.AccountChecking, BankName: "Banco do Brasil",
		InitialBalance: amt("5000"), CurrentBalance: amt("12450.75"), Currency: "BRL", IsActive: true,
	})
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}
	if _, err := r.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "Cartão Empresarial", Type: core.AccountCreditCard,
		CurrentBalance: amt("-1830.40"), Currency: "BRL", IsActive: true,
	}); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	cats := map[string]core.Category{}
	for _, c := range []core.Category{
		{Name: "Serviços", Type: core.CategoryIncome, Color: "#10b981"},
		{Name: "Vendas", Type: core.CategoryIncome, Color: "#3b82f6"},
		{Name: "Aluguel", Type: core.CategoryExpense, Color: "#ef4444"},
		{Name: "Marketing", Type: core.CategoryExpense, Color: "#f59e0b"},
	} {
		c.UserID, c.IsActive = userID, true
		created, err := r.CreateCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("seed category: %w", err)
		}
		cats[c.Name] = created
	}

	txs := []struct {
		desc   string
		amount string
		typ    core.TransactionType
		status core.TransactionStatus
		cat    string
		day    int
	}{
		{"Consultoria mensal", "8500", core.TypeIncome, core.StatusPaid, "Serviços", 2},
		{"Venda de licenças", "3200", core.TypeIncome, core.StatusPaid, "Vendas", 5},
		{"Aluguel do escritório", "2800", core.TypeExpense, core.StatusPaid, "Aluguel", 1},
		{"Campanha de anúncios", "950.50", core.TypeExpense, core.StatusPaid, "Marketing", 8},
		{"Fatura de hospedagem", "180", core.TypeExpense, core.StatusPending, "", 12},
	}
	for _, tx := range txs {
		t := core.Transaction{
			UserID: userID, Description: tx.desc, Amount: amt(tx.amount), Type: tx.typ, Status: tx.status,
			TransactionDate: month.AddDays(min(tx.day, today.Day()) - 1), AccountID: checking.ID,
		}
		if c, ok := cats[tx.cat]; ok {
			t.CategoryID = &c.ID
		}
		if _, err := r.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("seed transaction: %w", err)
		}
	}

	mkt := cats["Marketing"]
	if _, err := r.CreateBudget(ctx, core.Budget{
		UserID: userID, Name: "Marketing mensal", Amount: amt("1200"), SpentAmount: amt("950.50"),
		Period: core.Monthly, StartDate: month, EndDate: core.MonthEnd(month), CategoryID: &mkt.ID, IsActive: true,
	}); err != nil {
		return fmt.Errorf("seed budget: %w", err)
	}

	contact, err := r.CreateContact(ctx, core.Contact{
		UserID: userID, Name: "Maria Souza", Email: "maria@acme.com.br", Company: "Acme Ltda",
	})
	if err != nil {
		return fmt.Errorf("seed contact: %w", err)
	}
	if _, err := r.CreateInvoice(ctx, core.Invoice{
		UserID: userID, InvoiceNumber: "NF-0001", InvoiceDate: today.AddDays(-40), DueDate: today.AddDays(-10),
		Subtotal: amt("4000"), TotalAmount: amt("4000"), Currency: "BRL", Status: core.InvoiceSent, ContactID: &contact.ID,
	}); err != nil {
		return fmt.Errorf("seed invoice: %w", err)
	}
	return nil
}
