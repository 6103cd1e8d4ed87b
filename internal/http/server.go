// Package http serves the JSON API: record CRUD, the dashboard and report
// views, export requests and the live websocket.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/cache"
	"bizdash/internal/format"
	"bizdash/internal/log"
	"bizdash/internal/middleware/ratelimit"
	"bizdash/internal/middleware/security"
	"bizdash/internal/middleware/trace"
	"bizdash/internal/report"
	"bizdash/internal/services"
	"bizdash/internal/view"
)

const (
	// handlerTimeout bounds every remote read a handler makes.
	handlerTimeout = 7 * time.Second
	// ViewSessionHeader identifies the client view whose state a dashboard
	// or report request belongs to.
	ViewSessionHeader = "X-View-Session"
	maxBodyBytes      = 1 << 20
)

// ReportFetcher computes reports for a window.
type ReportFetcher interface {
	Fetch(ctx context.Context, req report.Request) (report.Report, error)
}

// ExportQueue accepts report export jobs.
type ExportQueue interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

// Pinger checks that the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LiveHub serves the live websocket endpoint.
type LiveHub interface {
	http.Handler
	Clients() int
}

type Config struct {
	Addr    string
	Records *services.RecordService
	Fetcher ReportFetcher
	// Store backs /readyz.
	Store Pinger
	// Exports is optional; without it export requests get a 503.
	Exports ExportQueue
	// Live is optional; without it /api/live is not served.
	Live LiveHub

	Locale         string
	Currency       string
	ViewSessionTTL time.Duration
	ViewSessionMax int
	RateLimit      ratelimit.Config
	TrustedProxies []string

	Logger *log.Logger
}

// appMetrics holds counters shown on /metrics.
type appMetrics struct {
	recordsChanged int64
	viewFailures   int64
	exportsQueued  int64
	uptime         time.Time
}

type Server struct {
	http.Server

	records *services.RecordService
	fetcher ReportFetcher
	store   Pinger
	exports ExportQueue
	live    LiveHub

	formatter *format.Formatter
	currency  string
	logger    *log.Logger
	now       func() time.Time

	reportViews    *view.Sessions[report.Report]
	dashboardViews *view.Sessions[report.Dashboard]
	cacheManager   *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and starts the view session janitor.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if cfg.ViewSessionTTL <= 0 {
		cfg.ViewSessionTTL = 30 * time.Minute
	}
	if cfg.ViewSessionMax <= 0 {
		cfg.ViewSessionMax = 1000
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit = ratelimit.DefaultConfig()
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s := &Server{
		records:          cfg.Records,
		fetcher:          cfg.Fetcher,
		store:            cfg.Store,
		exports:          cfg.Exports,
		live:             cfg.Live,
		formatter:        format.New(cfg.Locale, cfg.Currency),
		currency:         cfg.Currency,
		logger:           logger,
		now:              time.Now,
		reportViews:      view.NewSessions[report.Report](cfg.ViewSessionMax, cfg.ViewSessionTTL),
		dashboardViews:   view.NewSessions[report.Dashboard](cfg.ViewSessionMax, cfg.ViewSessionTTL),
		cacheManager:     cache.NewManager(logger.Logger),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       appMetrics{uptime: time.Now()},
	}

	s.cacheManager.Register("report_views", s.reportViews.Cleaner())
	s.cacheManager.Register("dashboard_views", s.dashboardViews.Cleaner())
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = detector.Middleware(logger)(handler)
	handler = headers.Middleware(handler)
	handler = trace.Recover(s.onPanic)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("POST /api/reports/export", s.handleExport)

	s.recordRoutes(mux)

	if s.live != nil {
		mux.Handle("GET /api/live", s.live)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests", "Rate limit exceeded. Please try again later.").Write(w)
}

func (s *Server) onPanic(w http.ResponseWriter, r *http.Request) {
	InternalServerError("Something went wrong. Please try again.").Write(w)
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) recordChanged() {
	atomic.AddInt64(&s.appMetrics.recordsChanged, 1)
}
