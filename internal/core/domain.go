package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"

	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusOverdue   TransactionStatus = "overdue"
	StatusCancelled TransactionStatus = "cancelled"

	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"

	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"

	Monthly   BudgetPeriod = "monthly"
	Quarterly BudgetPeriod = "quarterly"
	Yearly    BudgetPeriod = "yearly"

	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type (
	TransactionType   string
	TransactionStatus string
	AccountType       string
	CategoryType      string
	BudgetPeriod      string
	InvoiceStatus     string

	// Transaction is a single financial movement tied to an account and an
	// optional category.
	Transaction struct {
		ID                 string            `json:"id"`
		UserID             string            `json:"user_id"`
		Description        string            `json:"description"`
		Amount             decimal.Decimal   `json:"amount"`
		Type               TransactionType   `json:"type"`
		Status             TransactionStatus `json:"status"`
		TransactionDate    Date              `json:"transaction_date"`
		DueDate            *Date             `json:"due_date,omitempty"`
		AccountID          string            `json:"account_id"`
		CategoryID         *string           `json:"category_id,omitempty"`
		DealID             *string           `json:"deal_id,omitempty"`
		PaymentMethod      string            `json:"payment_method,omitempty"`
		ReferenceNumber    string            `json:"reference_number,omitempty"`
		Notes              string            `json:"notes,omitempty"`
		Tags               []string          `json:"tags,omitempty"`
		IsRecurring        bool              `json:"is_recurring"`
		RecurringFrequency string            `json:"recurring_frequency,omitempty"`
		RecurringEndDate   *Date             `json:"recurring_end_date,omitempty"`
		CreatedAt          time.Time         `json:"created_at"`
		UpdatedAt          time.Time         `json:"updated_at"`

		// Joined for display, never written back.
		Category *Category `json:"category,omitempty"`
		Account  *Account  `json:"account,omitempty"`
	}

	Account struct {
		ID             string          `json:"id"`
		UserID         string          `json:"user_id"`
		Name           string          `json:"name"`
		Type           AccountType     `json:"account_type"`
		BankName       string          `json:"bank_name,omitempty"`
		AccountNumber  string          `json:"account_number,omitempty"`
		InitialBalance decimal.Decimal `json:"initial_balance"`
		// CurrentBalance is maintained outside this service and only read here.
		CurrentBalance decimal.Decimal `json:"current_balance"`
		Currency       string          `json:"currency"`
		IsActive       bool            `json:"is_active"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	Category struct {
		ID          string       `json:"id"`
		UserID      string       `json:"user_id"`
		Name        string       `json:"name"`
		Type        CategoryType `json:"type"`
		Color       string       `json:"color,omitempty"`
		Icon        string       `json:"icon,omitempty"`
		Description string       `json:"description,omitempty"`
		IsActive    bool         `json:"is_active"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}

	// Budget is a spending ceiling tracked per category over a period.
	// SpentAmount is maintained outside this service.
	Budget struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		Name        string          `json:"name"`
		Amount      decimal.Decimal `json:"amount"`
		SpentAmount decimal.Decimal `json:"spent_amount"`
		Period      BudgetPeriod    `json:"period"`
		StartDate   Date            `json:"start_date"`
		EndDate     Date            `json:"end_date"`
		CategoryID  *string         `json:"category_id,omitempty"`
		IsActive    bool            `json:"is_active"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`

		Category *Category `json:"category,omitempty"`
	}

	Invoice struct {
		ID             string          `json:"id"`
		UserID         string          `json:"user_id"`
		InvoiceNumber  string          `json:"invoice_number"`
		InvoiceDate    Date            `json:"invoice_date"`
		DueDate        Date            `json:"due_date"`
		PaidDate       *Date           `json:"paid_date,omitempty"`
		Subtotal       decimal.Decimal `json:"subtotal"`
		TaxAmount      decimal.Decimal `json:"tax_amount"`
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		TotalAmount    decimal.Decimal `json:"total_amount"`
		Currency       string          `json:"currency"`
		Status         InvoiceStatus   `json:"status"`
		ContactID      *string         `json:"contact_id,omitempty"`
		DealID         *string         `json:"deal_id,omitempty"`
		PaymentMethod  string          `json:"payment_method,omitempty"`
		PaymentTerms   string          `json:"payment_terms,omitempty"`
		Notes          string          `json:"notes,omitempty"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`

		Contact *Contact `json:"contact,omitempty"`
	}

	Contact struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Name      string    `json:"name"`
		Email     string    `json:"email,omitempty"`
		Phone     string    `json:"phone,omitempty"`
		Company   string    `json:"company,omitempty"`
		Position  string    `json:"position,omitempty"`
		Address   string    `json:"address,omitempty"`
		Notes     string    `json:"notes,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyNumber       = errors.New("empty invoice number")
	ErrInvalidType       = errors.New("invalid type")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPeriod     = errors.New("invalid budget period")
	ErrMissingAccount    = errors.New("missing account")
	ErrCategoryMismatch  = errors.New("category type does not match transaction type")
	ErrInvalidDateRange  = errors.New("end date before start date")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrInvalidFrequency  = errors.New("invalid recurring frequency")
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (a AccountType) Valid() bool {
	switch a {
	case AccountChecking, AccountSavings, AccountCreditCard, AccountInvestment, AccountCash:
		return true
	}
	return false
}

func (c CategoryType) Valid() bool {
	return c == CategoryIncome || c == CategoryExpense
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// AllowsCategory reports whether a category of type c may be attached to a
// transaction of type t. Transfers take no category.
func (t TransactionType) AllowsCategory(c CategoryType) bool {
	switch t {
	case TypeIncome:
		return c == CategoryIncome
	case TypeExpense:
		return c == CategoryExpense
	}
	return false
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLength
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := t.TransactionDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if t.Category != nil && !t.Type.AllowsCategory(t.Category.Type) {
		return ErrCategoryMismatch
	}
	if t.IsRecurring && t.RecurringFrequency != "" && !Frequency(t.RecurringFrequency).Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Amount.IsNegative() || b.SpentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.InvoiceNumber) == "" {
		return ErrEmptyNumber
	}
	for _, amt := range []decimal.Decimal{i.Subtotal, i.TaxAmount, i.DiscountAmount, i.TotalAmount} {
		if amt.IsNegative() {
			return ErrInvalidAmount
		}
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := i.InvoiceDate.Validate(); err != nil {
		return err
	}
	if err := i.DueDate.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
