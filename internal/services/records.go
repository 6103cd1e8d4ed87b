// Package services holds the write paths: validated record changes that fan
// out as change events, the recurring transaction processor, and report
// exports.
package services

import (
	"context"
	"errors"
	"fmt"

	"bizdash/internal/amqp"
	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/repository"
	"bizdash/internal/storage"
)

// Publisher receives a change after it has been written. The AMQP client
// and the live hub both implement it.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// RecordService validates and writes bookkeeping records, then tells every
// publisher. The write is never rolled back when publishing fails.
type RecordService struct {
	repo       *repository.Repository
	userID     string
	publishers []Publisher
	logger     *log.Logger
	events     *log.StructuredLogger
}

func NewRecordService(repo *repository.Repository, userID string, logger *log.Logger, publishers ...Publisher) *RecordService {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentRecords)
	}
	logger = logger.WithComponent(log.ComponentRecords)
	return &RecordService{
		repo:       repo,
		userID:     userID,
		publishers: publishers,
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
	}
}

// AddPublisher registers p for changes written from now on.
func (s *RecordService) AddPublisher(p Publisher) {
	if p != nil {
		s.publishers = append(s.publishers, p)
	}
}

func (s *RecordService) Repository() *repository.Repository { return s.repo }

func (s *RecordService) changed(ctx context.Context, op, table, id string) {
	s.events.LogRecordChanged(ctx, op, table, id)
	msg := amqp.NewRecordChangedMessage(table, op, id, s.userID)
	for _, p := range s.publishers {
		if err := p.PublishRecordChanged(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish record change",
				log.FieldTable, table,
				log.FieldRecordID, id,
				log.FieldError, err)
		}
	}
}

func (s *RecordService) owner(id string) string {
	if id == "" {
		return s.userID
	}
	return id
}

// ---- Transactions ----

// prepareTransaction joins the category so its type can be checked against
// the transaction type, and confirms the account exists.
func (s *RecordService) prepareTransaction(ctx context.Context, t *core.Transaction) error {
	t.Category = nil
	if t.CategoryID != nil && *t.CategoryID != "" {
		c, err := s.repo.GetCategory(ctx, *t.CategoryID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("category %s: %w", *t.CategoryID, core.ErrCategoryMismatch)
			}
			return err
		}
		t.Category = &c
	} else {
		t.CategoryID = nil
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetAccount(ctx, t.AccountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrMissingAccount
		}
		return err
	}
	return nil
}

func (s *RecordService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.UserID = s.owner(t.UserID)
	if err := s.prepareTransaction(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	out, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	out.Category = t.Category
	s.changed(ctx, log.OpCreate, storage.Transactions, out.ID)
	return out, nil
}

func (s *RecordService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := s.prepareTransaction(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	out, err := s.repo.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	out.Category = t.Category
	s.changed(ctx, log.OpUpdate, storage.Transactions, out.ID)
	return out, nil
}

func (s *RecordService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Transactions, id)
	return nil
}

// ---- Accounts ----

func (s *RecordService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.UserID = s.owner(a.UserID)
	if a.Currency == "" {
		a.Currency = "BRL"
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	out, err := s.repo.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	s.changed(ctx, log.OpCreate, storage.Accounts, out.ID)
	return out, nil
}

func (s *RecordService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	out, err := s.repo.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	s.changed(ctx, log.OpUpdate, storage.Accounts, out.ID)
	return out, nil
}

func (s *RecordService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Accounts, id)
	return nil
}

// ---- Categories ----

func (s *RecordService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.UserID = s.owner(c.UserID)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	out, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, log.OpCreate, storage.Categories, out.ID)
	return out, nil
}

func (s *RecordService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	out, err := s.repo.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, log.OpUpdate, storage.Categories, out.ID)
	return out, nil
}

func (s *RecordService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Categories, id)
	return nil
}

// ---- Budgets ----

func (s *RecordService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.UserID = s.owner(b.UserID)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	out, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.changed(ctx, log.OpCreate, storage.Budgets, out.ID)
	return out, nil
}

func (s *RecordService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	out, err := s.repo.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.changed(ctx, log.OpUpdate, storage.Budgets, out.ID)
	return out, nil
}

func (s *RecordService) DeleteBudget(ctx context.Context, id string) error {
	if err := s.repo.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Budgets, id)
	return nil
}

// ---- Invoices ----

func (s *RecordService) CreateInvoice(ctx context.Context, i core.Invoice) (core.Invoice, error) {
	i.UserID = s.owner(i.UserID)
	if i.Currency == "" {
		i.Currency = "BRL"
	}
	if err := i.Validate(); err != nil {
		return core.Invoice{}, err
	}
	out, err := s.repo.CreateInvoice(ctx, i)
	if err != nil {
		return core.Invoice{}, err
	}
	s.changed(ctx, log.OpCreate, storage.Invoices, out.ID)
	return out, nil
}

func (s *RecordService) UpdateInvoice(ctx context.Context, i core.Invoice) (core.Invoice, error) {
	if err := i.Validate(); err != nil {
		return core.Invoice{}, err
	}
	out, err := s.repo.UpdateInvoice(ctx, i)
	if err != nil {
		return core.Invoice{}, err
	}
	s.changed(ctx, log.OpUpdate, storage.Invoices, out.ID)
	return out, nil
}

func (s *RecordService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Invoices, id)
	return nil
}

// ---- Contacts ----

func (s *RecordService) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	c.UserID = s.owner(c.UserID)
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	out, err := s.repo.CreateContact(ctx, c)
	if err != nil {
		return core.Contact{}, err
	}
	s.changed(ctx, log.OpCreate, storage.Contacts, out.ID)
	return out, nil
}

func (s *RecordService) UpdateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	out, err := s.repo.UpdateContact(ctx, c)
	if err != nil {
		return core.Contact{}, err
	}
	s.changed(ctx, log.OpUpdate, storage.Contacts, out.ID)
	return out, nil
}

func (s *RecordService) DeleteContact(ctx context.Context, id string) error {
	if err := s.repo.DeleteContact(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, log.OpDelete, storage.Contacts, id)
	return nil
}
