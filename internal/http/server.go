package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ledgerdesk/internal/cache"
	"ledgerdesk/internal/core"
	"ledgerdesk/internal/form"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/live"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/middleware/ratelimit"
	"ledgerdesk/internal/middleware/security"
	"ledgerdesk/internal/middleware/trace"
	"ledgerdesk/internal/selection"
	"ledgerdesk/internal/shell"
	"ledgerdesk/internal/view"
	appweb "ledgerdesk/web"
)

// Deps are the presentation-layer collaborators the server renders from.
type Deps struct {
	Gateway      gateway.Gateway
	Selection    *selection.Store
	Accounts     *view.Accounts
	Transactions *view.Transactions
	Form         *form.Form
	Shell        *shell.Layout
	Hub          *live.Hub
	Formatter    *core.Formatter
	Logger       *log.Logger
	// ReadyTimeout bounds the gateway check behind /readyz.
	ReadyTimeout time.Duration
	// RequestsPerMinute limits POSTs per client; zero uses the default.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *log.Logger
	events    *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated atomic.Int64
	submissionsRejected atomic.Int64
	submissionsFailed   atomic.Int64
}

// cacheStatser is implemented by gateways that cache command results.
type cacheStatser interface {
	Stats() cache.Stats
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Gateway == nil || deps.Selection == nil || deps.Accounts == nil ||
		deps.Transactions == nil || deps.Form == nil || deps.Shell == nil || deps.Formatter == nil {
		return nil, errors.New("http server: missing dependency")
	}
	if deps.ReadyTimeout <= 0 {
		deps.ReadyTimeout = 5 * time.Second
	}
	logger := log.OrDiscard(deps.Logger).WithComponent(log.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(logger)
	s := &Server{
		deps:             deps,
		templates:        t,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RequestsPerMinute,
			Logger:            logger,
		}),
		appMetrics: &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/ui/sidebar", s.handleSidebar)
	mux.HandleFunc("/ui/shell/toggle", s.handleShellToggle)
	mux.HandleFunc("/ui/accounts/select", s.handleSelectAccount)
	mux.HandleFunc("/ui/transactions", s.handleTransactions)
	mux.HandleFunc("/ui/month", s.handleMonth)
	mux.HandleFunc("/ui/form", s.handleForm)
	mux.HandleFunc("/transactions", s.handleCreateTransaction)
	if deps.Hub != nil {
		mux.Handle("/ws", deps.Hub)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, http.MethodPost)(handler)
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

var templateFuncs = template.FuncMap{
	"millis": func(d time.Duration) int64 { return d.Milliseconds() },
}

// Shutdown stops accepting requests, disconnects live clients and stops the
// rate limiter. Views are owned by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.deps.Hub != nil {
			if err := s.deps.Hub.Close(); err != nil {
				s.logger.Warn("Live hub close failed", log.FieldError, err)
			}
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestLogger returns the request-scoped logger set by the trace
// middleware, or the server logger.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if l, ok := r.Context().Value(log.LoggerContextKey).(*log.Logger); ok {
		return l.WithComponent(log.ComponentHTTP)
	}
	return s.logger
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	b.BodyTemplate(s.templates, name, data)
	if b.statusCode == http.StatusInternalServerError {
		s.requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldOperation, log.OpRender)
	}
	b.Write(w)
}
