package report

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/core"

	"golang.org/x/sync/errgroup"
)

// Source supplies the records a report is computed from.
type Source interface {
	PaidTransactions(ctx context.Context, rng core.Range) ([]core.Transaction, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error)
}

// Request selects the report window. Start and End only apply to Custom.
type Request struct {
	Period Period
	Start  *core.Date
	End    *core.Date
}

// Fetcher loads report data for a period and aggregates it.
type Fetcher struct {
	src Source
	now func() time.Time
}

func NewFetcher(src Source) *Fetcher {
	return &Fetcher{src: src, now: time.Now}
}

// WithClock overrides the reference time used to resolve periods.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Fetch reads paid transactions in the window and active accounts
// concurrently. Any failure aborts the whole fetch; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Report, error) {
	now := f.now()
	if err := req.CheckRange(now); err != nil {
		return Report{}, fmt.Errorf("fetch report: %w", err)
	}
	rng := ResolvePeriod(req.Period, now, req.Start, req.End)

	var (
		txs      []core.Transaction
		accounts []core.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = f.src.PaidTransactions(gctx, rng)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		accounts, err = f.src.ListAccounts(gctx, true)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("fetch report: %w", err)
	}

	r := Aggregate(txs, accounts, rng)
	r.Period = req.Period
	if !r.Period.Valid() {
		r.Period = ThisMonth
	}
	return r, nil
}
