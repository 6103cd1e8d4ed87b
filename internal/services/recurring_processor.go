package services

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/core"
	"bizdash/internal/log"
)

// RecurringProcessor materializes the next occurrence of every recurring
// transaction series that is due. A series is the set of recurring
// transactions sharing a core.Transaction SeriesKey; its oldest occurrence
// fixes the schedule and its newest is the last execution.
type RecurringProcessor struct {
	records *RecordService
	logger  *log.Logger
}

func NewRecurringProcessor(records *RecordService, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentWorker)
	}
	return &RecurringProcessor{records: records, logger: logger.WithComponent(log.ComponentWorker)}
}

type series struct {
	first  core.Transaction
	latest core.Transaction
}

// ProcessDue creates one pending transaction, dated today, for each due
// series and returns how many it created. A failing series is logged and
// skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.records == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	txs, err := p.records.Repository().RecurringTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	var order []string
	bySeries := map[string]*series{}
	for _, t := range txs {
		key := t.SeriesKey()
		s, ok := bySeries[key]
		if !ok {
			bySeries[key] = &series{first: t, latest: t}
			order = append(order, key)
			continue
		}
		if !t.TransactionDate.Before(s.latest.TransactionDate.Time) {
			s.latest = t
		}
	}

	today := core.DateOf(now)
	created := 0
	for _, key := range order {
		s := bySeries[key]
		next, due, err := p.nextOccurrence(s, today)
		if err != nil {
			p.logger.WarnContext(ctx, "Skipping recurring series", log.FieldRecordID, s.latest.ID, log.FieldError, err)
			continue
		}
		if !due {
			continue
		}
		out, err := p.records.CreateTransaction(ctx, next)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to create recurring occurrence",
				log.FieldRecordID, s.latest.ID,
				"description", s.latest.Description,
				log.FieldError, err)
			continue
		}
		created++
		p.logger.InfoContext(ctx, "Created recurring occurrence",
			"series_from", s.latest.ID,
			log.FieldRecordID, out.ID,
			"frequency", s.latest.RecurringFrequency)
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"created", created,
		"series", len(order),
		"date", today.String())
	return created, nil
}

func (p *RecurringProcessor) nextOccurrence(s *series, today core.Date) (core.Transaction, bool, error) {
	last := s.latest
	if last.RecurringFrequency == "" || last.Status == core.StatusCancelled {
		return core.Transaction{}, false, nil
	}
	if last.RecurringEndDate != nil && today.After(last.RecurringEndDate.Time) {
		return core.Transaction{}, false, nil
	}
	checker, err := GetDuenessChecker(core.Frequency(last.RecurringFrequency))
	if err != nil {
		return core.Transaction{}, false, err
	}
	if !checker.IsDue(last.TransactionDate, today, s.first.TransactionDate) {
		return core.Transaction{}, false, nil
	}

	next := last
	next.ID = ""
	next.Status = core.StatusPending
	next.TransactionDate = today
	next.CreatedAt, next.UpdatedAt = time.Time{}, time.Time{}
	next.Category, next.Account = nil, nil
	if last.DueDate != nil {
		offset := int(last.DueDate.Sub(last.TransactionDate.Time).Hours() / 24)
		due := today.AddDays(offset)
		next.DueDate = &due
	}
	return next, true, nil
}
