// Package worker runs the report worker: it consumes export jobs from AMQP
// and runs the scheduled export and recurring transaction jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bizdash/internal/amqp"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/services"
)

// Consumer delivers export jobs until ctx is done.
type Consumer interface {
	ConsumeReportExports(ctx context.Context, handler func(context.Context, *amqp.ReportExportMessage) error) error
}

// Enqueuer queues an export job.
type Enqueuer interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

type Config struct {
	// ReportCron schedules the automatic export; empty disables it.
	ReportCron string
	// RecurringCron schedules recurring transaction processing; empty
	// disables it.
	RecurringCron string
	// ExportPeriod is the period of scheduled exports.
	ExportPeriod report.Period
	// JobTimeout bounds each scheduled run.
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReportCron:    "@monthly",
		RecurringCron: "@daily",
		ExportPeriod:  report.LastMonth,
		JobTimeout:    2 * time.Minute,
	}
}

type ReportWorker struct {
	consumer  Consumer
	queue     Enqueuer
	exports   *services.ExportProcessor
	recurring *services.RecurringProcessor
	config    Config
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// New builds a worker. consumer and queue may be nil when AMQP is not
// configured: scheduled exports then run in process and nothing is consumed.
func New(consumer Consumer, queue Enqueuer, exports *services.ExportProcessor, recurring *services.RecurringProcessor, config Config, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentWorker)
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if config.ExportPeriod == "" {
		config.ExportPeriod = report.LastMonth
	}
	return &ReportWorker{
		consumer:  consumer,
		queue:     queue,
		exports:   exports,
		recurring: recurring,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// Start schedules the cron jobs and starts consuming. It returns an error if
// the worker is already running or a schedule does not parse.
func (w *ReportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("report worker is already running")
	}

	cl := cronLogger{w.logger.WithComponent(log.ComponentScheduler)}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if w.config.ReportCron != "" && w.exports != nil {
		if _, err := c.AddFunc(w.config.ReportCron, func() { w.runScheduled(ctx, w.EnqueueScheduled) }); err != nil {
			return fmt.Errorf("schedule report export %q: %w", w.config.ReportCron, err)
		}
	}
	if w.config.RecurringCron != "" && w.recurring != nil {
		if _, err := c.AddFunc(w.config.RecurringCron, func() { w.runScheduled(ctx, w.ProcessRecurring) }); err != nil {
			return fmt.Errorf("schedule recurring transactions %q: %w", w.config.RecurringCron, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cron, w.cancel = c, cancel
	w.doneCh = make(chan struct{})
	w.running = true

	c.Start()
	go w.consume(runCtx, w.doneCh)

	w.logger.InfoContext(ctx, "Report worker started",
		"report_cron", w.config.ReportCron,
		"recurring_cron", w.config.RecurringCron,
		"consuming", w.consumer != nil)
	return nil
}

func (w *ReportWorker) consume(ctx context.Context, done chan struct{}) {
	defer close(done)
	if w.consumer == nil || w.exports == nil {
		<-ctx.Done()
		return
	}
	err := w.consumer.ConsumeReportExports(ctx, w.exports.HandleExport)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Export consumer stopped", log.FieldError, err)
	}
}

func (w *ReportWorker) runScheduled(ctx context.Context, job func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()
	if err := job(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Scheduled job failed", log.FieldError, err)
	}
}

// EnqueueScheduled queues an export of the configured period, or runs it in
// process when there is no queue.
func (w *ReportWorker) EnqueueScheduled(ctx context.Context) error {
	msg := amqp.NewReportExportMessage(string(w.config.ExportPeriod), "", "")
	msg.RequestedAt = w.now()
	if w.queue == nil {
		return w.exports.HandleExport(ctx, msg)
	}
	return w.queue.PublishReportExport(ctx, msg)
}

// ProcessRecurring creates today's due recurring transactions.
func (w *ReportWorker) ProcessRecurring(ctx context.Context) error {
	_, err := w.recurring.ProcessDue(ctx, w.now())
	return err
}

// Stop stops scheduling, waits for running jobs and the consumer, or for ctx.
func (w *ReportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	c, cancel, done := w.cron, w.cancel, w.doneCh
	w.running = false
	w.mu.Unlock()

	cronDone := c.Stop()
	cancel()

	select {
	case <-cronDone.Done():
	case <-ctx.Done():
		w.logger.Warn("Report worker stop timed out waiting for jobs")
		return ctx.Err()
	}
	select {
	case <-done:
		w.logger.Info("Report worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Report worker stop timed out")
		return ctx.Err()
	}
}

func (w *ReportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// cronLogger routes cron's own logging through the worker logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{log.FieldError, err}, keysAndValues...)...)
}
