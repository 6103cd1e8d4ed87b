package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/repository"
	"bizdash/internal/services"
	sheetmem "bizdash/internal/sheets/memory"
	"bizdash/internal/storage/memory"
)

const userID = "00000000-0000-0000-0000-000000000001"

type fakeQueue struct {
	mu   sync.Mutex
	msgs []*amqp.ReportExportMessage
	err  error
}

func (f *fakeQueue) PublishReportExport(_ context.Context, msg *amqp.ReportExportMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

// fakeConsumer hands its queued jobs to the handler, then blocks until
// cancelled, the way the AMQP consumer does.
type fakeConsumer struct {
	jobs    []*amqp.ReportExportMessage
	handled chan error
}

func (f *fakeConsumer) ConsumeReportExports(ctx context.Context, handler func(context.Context, *amqp.ReportExportMessage) error) error {
	for _, job := range f.jobs {
		f.handled <- handler(ctx, job)
	}
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *log.Logger {
	return log.FromSlog(slog.New(slog.NewTextHandler(io.Discard, nil)), log.ComponentWorker)
}

func newProcessors(t *testing.T) (*services.ExportProcessor, *services.RecurringProcessor, *sheetmem.Store) {
	t.Helper()
	repo := repository.New(memory.New())
	if err := repo.SeedDemo(context.Background(), userID, time.Now()); err != nil {
		t.Fatal(err)
	}
	records := services.NewRecordService(repo, userID, quietLogger())
	writer := sheetmem.New()
	exports := services.NewExportProcessor(report.NewFetcher(repo), writer, "pt-BR", "BRL", quietLogger())
	return exports, services.NewRecurringProcessor(records, quietLogger()), writer
}

func TestEnqueueScheduledPublishesConfiguredPeriod(t *testing.T) {
	exports, recurring, _ := newProcessors(t)
	queue := &fakeQueue{}
	w := New(nil, queue, exports, recurring, DefaultConfig(), quietLogger())
	w.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	if err := w.EnqueueScheduled(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(queue.msgs) != 1 {
		t.Fatalf("expected one job, got %d", len(queue.msgs))
	}
	msg := queue.msgs[0]
	if msg.Period != string(report.LastMonth) || !msg.RequestedAt.Equal(w.now()) || msg.JobID == "" {
		t.Errorf("unexpected job %+v", msg)
	}

	queue.err = errors.New("broker down")
	if err := w.EnqueueScheduled(context.Background()); err == nil {
		t.Error("publish failure should be returned")
	}
}

func TestEnqueueScheduledWithoutQueueRunsInProcess(t *testing.T) {
	exports, recurring, writer := newProcessors(t)
	w := New(nil, nil, exports, recurring, DefaultConfig(), quietLogger())

	if err := w.EnqueueScheduled(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(writer.Blocks()) != 1 {
		t.Fatalf("expected the export to be written directly, got %d blocks", len(writer.Blocks()))
	}
}

func TestStartConsumesAndStops(t *testing.T) {
	exports, recurring, writer := newProcessors(t)
	consumer := &fakeConsumer{
		jobs:    []*amqp.ReportExportMessage{amqp.NewReportExportMessage("this_year", "", "")},
		handled: make(chan error, 1),
	}
	w := New(consumer, &fakeQueue{}, exports, recurring, DefaultConfig(), quietLogger())

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !w.IsRunning() {
		t.Fatal("worker should be running")
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not handled")
	}
	if len(writer.Blocks()) != 1 {
		t.Errorf("expected one exported block, got %d", len(writer.Blocks()))
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should be stopped")
	}
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop on a stopped worker: %v", err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	exports, recurring, _ := newProcessors(t)
	for _, cfg := range []Config{
		{ReportCron: "every tuesday"},
		{ReportCron: "@monthly", RecurringCron: "61 * * * *"},
	} {
		w := New(nil, nil, exports, recurring, cfg, quietLogger())
		if err := w.Start(context.Background()); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
		if w.IsRunning() {
			t.Errorf("worker should not run after a failed start")
		}
	}
}

func TestProcessRecurring(t *testing.T) {
	exports, recurring, _ := newProcessors(t)
	w := New(nil, nil, exports, recurring, DefaultConfig(), quietLogger())
	if err := w.ProcessRecurring(context.Background()); err != nil {
		t.Fatal(err)
	}
}
