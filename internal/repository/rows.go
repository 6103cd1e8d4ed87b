package repository

import (
	"bizdash/internal/core"
	"bizdash/internal/storage"
)

func transactionRow(t core.Transaction) storage.Row {
	return storage.Row{
		"id":                  orNil(t.ID),
		"user_id":             orNil(t.UserID),
		"description":         t.Description,
		"amount":              t.Amount,
		"type":                string(t.Type),
		"status":              string(t.Status),
		"transaction_date":    t.TransactionDate,
		"due_date":            optDate(t.DueDate),
		"account_id":          t.AccountID,
		"category_id":         optString(t.CategoryID),
		"deal_id":             optString(t.DealID),
		"payment_method":      orNil(t.PaymentMethod),
		"reference_number":    orNil(t.ReferenceNumber),
		"notes":               orNil(t.Notes),
		"tags":                joinTags(t.Tags),
		"is_recurring":        t.IsRecurring,
		"recurring_frequency": orNil(t.RecurringFrequency),
		"recurring_end_date":  optDate(t.RecurringEndDate),
	}
}

func transactionFromRow(r storage.Row) core.Transaction {
	return core.Transaction{
		ID:                 str(r["id"]),
		UserID:             str(r["user_id"]),
		Description:        str(r["description"]),
		Amount:             dec(r["amount"]),
		Type:               core.TransactionType(str(r["type"])),
		Status:             core.TransactionStatus(str(r["status"])),
		TransactionDate:    date(r["transaction_date"]),
		DueDate:            datePtr(r["due_date"]),
		AccountID:          str(r["account_id"]),
		CategoryID:         strPtr(r["category_id"]),
		DealID:             strPtr(r["deal_id"]),
		PaymentMethod:      str(r["payment_method"]),
		ReferenceNumber:    str(r["reference_number"]),
		Notes:              str(r["notes"]),
		Tags:               tags(r["tags"]),
		IsRecurring:        boolean(r["is_recurring"]),
		RecurringFrequency: str(r["recurring_frequency"]),
		RecurringEndDate:   datePtr(r["recurring_end_date"]),
		CreatedAt:          timestamp(r["created_at"]),
		UpdatedAt:          timestamp(r["updated_at"]),
	}
}

func accountRow(a core.Account) storage.Row {
	return storage.Row{
		"id":              orNil(a.ID),
		"user_id":         orNil(a.UserID),
		"name":            a.Name,
		"account_type":    string(a.Type),
		"bank_name":       orNil(a.BankName),
		"account_number":  orNil(a.AccountNumber),
		"initial_balance": a.InitialBalance,
		"current_balance": a.CurrentBalance,
		"currency":        a.Currency,
		"is_active":       a.IsActive,
	}
}

func accountFromRow(r storage.Row) core.Account {
	return core.Account{
		ID:             str(r["id"]),
		UserID:         str(r["user_id"]),
		Name:           str(r["name"]),
		Type:           core.AccountType(str(r["account_type"])),
		BankName:       str(r["bank_name"]),
		AccountNumber:  str(r["account_number"]),
		InitialBalance: dec(r["initial_balance"]),
		CurrentBalance: dec(r["current_balance"]),
		Currency:       str(r["currency"]),
		IsActive:       boolean(r["is_active"]),
		CreatedAt:      timestamp(r["created_at"]),
		UpdatedAt:      timestamp(r["updated_at"]),
	}
}

func categoryRow(c core.Category) storage.Row {
	return storage.Row{
		"id":          orNil(c.ID),
		"user_id":     orNil(c.UserID),
		"name":        c.Name,
		"type":        string(c.Type),
		"color":       orNil(c.Color),
		"icon":        orNil(c.Icon),
		"description": orNil(c.Description),
		"is_active":   c.IsActive,
	}
}

func categoryFromRow(r storage.Row) core.Category {
	return core.Category{
		ID:          str(r["id"]),
		UserID:      str(r["user_id"]),
		Name:        str(r["name"]),
		Type:        core.CategoryType(str(r["type"])),
		Color:       str(r["color"]),
		Icon:        str(r["icon"]),
		Description: str(r["description"]),
		IsActive:    boolean(r["is_active"]),
		CreatedAt:   timestamp(r["created_at"]),
		UpdatedAt:   timestamp(r["updated_at"]),
	}
}

func budgetRow(b core.Budget) storage.Row {
	return storage.Row{
		"id":           orNil(b.ID),
		"user_id":      orNil(b.UserID),
		"name":         b.Name,
		"amount":       b.Amount,
		"spent_amount": b.SpentAmount,
		"period":       string(b.Period),
		"start_date":   b.StartDate,
		"end_date":     b.EndDate,
		"category_id":  optString(b.CategoryID),
		"is_active":    b.IsActive,
	}
}

func budgetFromRow(r storage.Row) core.Budget {
	return core.Budget{
		ID:          str(r["id"]),
		UserID:      str(r["user_id"]),
		Name:        str(r["name"]),
		Amount:      dec(r["amount"]),
		SpentAmount: dec(r["spent_amount"]),
		Period:      core.BudgetPeriod(str(r["period"])),
		StartDate:   date(r["start_date"]),
		EndDate:     date(r["end_date"]),
		CategoryID:  strPtr(r["category_id"]),
		IsActive:    boolean(r["is_active"]),
		CreatedAt:   timestamp(r["created_at"]),
		UpdatedAt:   timestamp(r["updated_at"]),
	}
}

func invoiceRow(i core.Invoice) storage.Row {
	return storage.Row{
		"id":              orNil(i.ID),
		"user_id":         orNil(i.UserID),
		"invoice_number":  i.InvoiceNumber,
		"invoice_date":    i.InvoiceDate,
		"due_date":        i.DueDate,
		"paid_date":       optDate(i.PaidDate),
		"subtotal":        i.Subtotal,
		"tax_amount":      i.TaxAmount,
		"discount_amount": i.DiscountAmount,
		"total_amount":    i.TotalAmount,
		"currency":        i.Currency,
		"status":          string(i.Status),
		"contact_id":      optString(i.ContactID),
		"deal_id":         optString(i.DealID),
		"payment_method":  orNil(i.PaymentMethod),
		"payment_terms":   orNil(i.PaymentTerms),
		"notes":           orNil(i.Notes),
	}
}

func invoiceFromRow(r storage.Row) core.Invoice {
	return core.Invoice{
		ID:             str(r["id"]),
		UserID:         str(r["user_id"]),
		InvoiceNumber:  str(r["invoice_number"]),
		InvoiceDate:    date(r["invoice_date"]),
		DueDate:        date(r["due_date"]),
		PaidDate:       datePtr(r["paid_date"]),
		Subtotal:       dec(r["subtotal"]),
		TaxAmount:      dec(r["tax_amount"]),
		DiscountAmount: dec(r["discount_amount"]),
		TotalAmount:    dec(r["total_amount"]),
		Currency:       str(r["currency"]),
		Status:         core.InvoiceStatus(str(r["status"])),
		ContactID:      strPtr(r["contact_id"]),
		DealID:         strPtr(r["deal_id"]),
		PaymentMethod:  str(r["payment_method"]),
		PaymentTerms:   str(r["payment_terms"]),
		Notes:          str(r["notes"]),
		CreatedAt:      timestamp(r["created_at"]),
		UpdatedAt:      timestamp(r["updated_at"]),
	}
}

func contactRow(c core.Contact) storage.Row {
	return storage.Row{
		"id":       orNil(c.ID),
		"user_id":  orNil(c.UserID),
		"name":     c.Name,
		"email":    orNil(c.Email),
		"phone":    orNil(c.Phone),
		"company":  orNil(c.Company),
		"position": orNil(c.Position),
		"address":  orNil(c.Address),
		"notes":    orNil(c.Notes),
	}
}

func contactFromRow(r storage.Row) core.Contact {
	return core.Contact{
		ID:        str(r["id"]),
		UserID:    str(r["user_id"]),
		Name:      str(r["name"]),
		Email:     str(r["email"]),
		Phone:     str(r["phone"]),
		Company:   str(r["company"]),
		Position:  str(r["position"]),
		Address:   str(r["address"]),
		Notes:     str(r["notes"]),
		CreatedAt: timestamp(r["created_at"]),
		UpdatedAt: timestamp(r["updated_at"]),
	}
}

// patchOf turns a full row into an update patch. The row is addressed by
// filter and ownership never changes.
func patchOf(r storage.Row) storage.Row {
	delete(r, "id")
	if r["user_id"] == nil {
		delete(r, "user_id")
	}
	return r
}
