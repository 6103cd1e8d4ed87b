package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/core"
	"bizdash/internal/report"
	sheetmem "bizdash/internal/sheets/memory"
)

func TestRequestResolvesAgainstRequestTime(t *testing.T) {
	msg := &amqp.ReportExportMessage{JobID: "j1", Period: "last_month", RequestedAt: time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)}
	req, period, err := Request(msg)
	if err != nil {
		t.Fatal(err)
	}
	if period != report.LastMonth {
		t.Errorf("period = %v", period)
	}
	if *req.Start != core.NewDate(2024, 2, 1) || *req.End != core.NewDate(2024, 2, 29) {
		t.Errorf("range = %v..%v", req.Start, req.End)
	}

	custom := &amqp.ReportExportMessage{JobID: "j2", Period: "custom", Start: "2024-01-10", End: "2024-01-20", RequestedAt: msg.RequestedAt}
	req, _, err = Request(custom)
	if err != nil {
		t.Fatal(err)
	}
	if *req.Start != core.NewDate(2024, 1, 10) || *req.End != core.NewDate(2024, 1, 20) {
		t.Errorf("custom range = %v..%v", req.Start, req.End)
	}

	for _, bad := range []*amqp.ReportExportMessage{
		{JobID: "j3", Period: "fortnight"},
		{JobID: "j4", Period: "custom", Start: "10/01/2024"},
		{JobID: "j5", Period: "custom", Start: "2024-05-01", RequestedAt: msg.RequestedAt},
	} {
		if _, _, err := Request(bad); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestHandleExport(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	acc, income, _ := setup(t, s)
	if _, err := s.CreateTransaction(ctx, tx(acc, &income, core.TypeIncome)); err != nil {
		t.Fatal(err)
	}

	writer := sheetmem.New()
	p := NewExportProcessor(report.NewFetcher(s.Repository()), writer, "pt-BR", "BRL", quietLogger())

	msg := &amqp.ReportExportMessage{JobID: "j1", Period: "this_month", RequestedAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)}
	if err := p.HandleExport(ctx, msg); err != nil {
		t.Fatalf("HandleExport: %v", err)
	}
	blocks := writer.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	if blocks[0][0][1] != "this_month" || blocks[0][1][1] != "150.00" {
		t.Errorf("unexpected rows %v", blocks[0][:2])
	}

	writer.FailWith(errors.New("quota exceeded"))
	if err := p.HandleExport(ctx, msg); err == nil {
		t.Fatal("writer failure should fail the job")
	}
}
