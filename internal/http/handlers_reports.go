package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/view"
)

// viewResponse is a dashboard or report view. Data is the last good dataset,
// which after a failed load is older than the request.
type viewResponse[T any] struct {
	Data         *T                `json:"data"`
	Generation   uint64            `json:"generation"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty"`
	Stale        bool              `json:"stale"`
	Formatted    map[string]string `json:"formatted,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
}

func writeView[T any](s *Server, w http.ResponseWriter, r *http.Request, what string, res view.Result[T], formatted func(T) map[string]string) {
	resp := viewResponse[T]{
		Generation: res.Generation,
		Stale:      res.Stale || res.LoadErr != nil,
	}
	if res.Loaded {
		data := res.Data
		resp.Data = &data
		updated := res.UpdatedAt
		resp.UpdatedAt = &updated
		resp.Formatted = formatted(data)
	}

	status := http.StatusOK
	if res.LoadErr != nil {
		atomic.AddInt64(&s.appMetrics.viewFailures, 1)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "View load failed",
			log.FieldOperation, log.OpFetch,
			"view", what,
			log.FieldSession, r.Header.Get(ViewSessionHeader),
			log.FieldError, res.LoadErr)
		msg := "Could not load the " + what + ". Showing the last available data."
		if !res.Loaded {
			msg = "Could not load the " + what + "."
			status = http.StatusBadGateway
			if errors.Is(res.LoadErr, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
		}
		resp.Notification = &Notification{Type: NotificationError, Title: "Load failed", Message: msg}
	}
	NewResponse().Status(status).JSON(resp).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := s.dashboardViews.Get(r.Header.Get(ViewSessionHeader))

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	res := state.Load(ctx, func(ctx context.Context) (report.Dashboard, error) {
		return report.BuildDashboard(ctx, s.records.Repository(), s.now())
	})
	writeView(s, w, r, "dashboard", res, s.formatDashboard)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	req, err := ParseReportQuery(r.URL.Query())
	if err == nil {
		err = req.CheckRange(s.now())
	}
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}
	state := s.reportViews.Get(r.Header.Get(ViewSessionHeader))

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	res := state.Load(ctx, func(ctx context.Context) (report.Report, error) {
		return s.fetcher.Fetch(ctx, req)
	})
	writeView(s, w, r, "report", res, s.formatReport)
}

func (s *Server) formatReport(rep report.Report) map[string]string {
	return map[string]string{
		"totalIncome":   s.formatter.Currency(rep.TotalIncome, s.currency),
		"totalExpenses": s.formatter.Currency(rep.TotalExpenses, s.currency),
		"netIncome":     s.formatter.Currency(rep.NetIncome, s.currency),
		"totalBalance":  s.formatter.Currency(rep.TotalBalance(), s.currency),
		"rangeStart":    s.formatter.Date(rep.Range.Start.String()),
		"rangeEnd":      s.formatter.Date(rep.Range.End.String()),
	}
}

func (s *Server) formatDashboard(d report.Dashboard) map[string]string {
	return map[string]string{
		"totalBalance":    s.formatter.Currency(d.TotalBalance, s.currency),
		"monthlyIncome":   s.formatter.Currency(d.MonthlyIncome, s.currency),
		"monthlyExpenses": s.formatter.Currency(d.MonthlyExpenses, s.currency),
	}
}

type exportRequest struct {
	Period string `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// handleExport queues a report export. The period may come as a JSON body or
// in the query string.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		ServiceUnavailableError("Report export is not configured.").Write(w)
		return
	}

	q := r.URL.Query()
	in := exportRequest{Period: q.Get("period"), Start: q.Get("start"), End: q.Get("end")}
	if err := DecodeJSON(r, &in); err != nil && !errors.Is(err, errEmptyBody) {
		BadRequestError("The request body is not valid JSON.").Write(w)
		return
	}
	req, err := report.ParseRequest(in.Period, in.Start, in.End)
	if err == nil {
		err = req.CheckRange(s.now())
	}
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}

	msg := amqp.NewReportExportMessage(string(req.Period), in.Start, in.End)
	msg.RequestedAt = s.now()

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	if err := s.exports.PublishReportExport(ctx, msg); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to queue report export",
			log.FieldOperation, log.OpExport,
			log.FieldJobID, msg.JobID,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "Export failed", "The export could not be queued. Please try again.").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.exportsQueued, 1)

	NewResponse().Status(http.StatusAccepted).JSON(map[string]any{
		"jobId":  msg.JobID,
		"period": msg.Period,
		"notification": Notification{
			Type:    NotificationSuccess,
			Title:   "Export queued",
			Message: "The report will appear in the export sheet shortly.",
		},
	}).Write(w)
}
