package services

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/format"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/sheets"
)

// ExportProcessor turns report export jobs into rows on the export sheet.
type ExportProcessor struct {
	fetcher  *report.Fetcher
	writer   sheets.ReportWriter
	locale   string
	currency string
	logger   *log.Logger
	now      func() time.Time
}

func NewExportProcessor(fetcher *report.Fetcher, writer sheets.ReportWriter, locale, currency string, logger *log.Logger) *ExportProcessor {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentWorker)
	}
	return &ExportProcessor{
		fetcher:  fetcher,
		writer:   writer,
		locale:   locale,
		currency: currency,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// Request resolves the job's period against the time it was requested, so a
// job that waits in the queue past a month boundary still exports the month
// it was queued for.
func Request(msg *amqp.ReportExportMessage) (report.Request, report.Period, error) {
	if msg.Period == "" {
		return report.Request{}, "", fmt.Errorf("export job %s: missing period", msg.JobID)
	}
	req, err := report.ParseRequest(msg.Period, msg.Start, msg.End)
	if err != nil {
		return report.Request{}, "", fmt.Errorf("export job %s: %w", msg.JobID, err)
	}
	at := msg.RequestedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := req.CheckRange(at); err != nil {
		return report.Request{}, "", fmt.Errorf("export job %s: %w", msg.JobID, err)
	}
	rng := report.ResolvePeriod(req.Period, at, req.Start, req.End)
	return report.Request{Period: report.Custom, Start: &rng.Start, End: &rng.End}, req.Period, nil
}

// HandleExport computes the report for msg and appends it to the sheet.
func (p *ExportProcessor) HandleExport(ctx context.Context, msg *amqp.ReportExportMessage) error {
	req, period, err := Request(msg)
	if err != nil {
		return err
	}

	rep, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("export job %s: %w", msg.JobID, err)
	}
	rep.Period = period

	locale, currency := p.locale, p.currency
	if msg.Locale != "" {
		locale = msg.Locale
	}
	if msg.Currency != "" {
		currency = msg.Currency
	}

	rows := sheets.ReportRows(rep, format.New(locale, currency), msg.JobID, p.now())
	ref, err := p.writer.AppendRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("export job %s: %w", msg.JobID, err)
	}

	p.logger.InfoContext(ctx, "Exported report",
		log.FieldJobID, msg.JobID,
		log.FieldPeriod, string(period),
		log.FieldRangeStart, rep.Range.Start.String(),
		log.FieldRangeEnd, rep.Range.End.String(),
		"ref", ref)
	return nil
}
