package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cantine/internal/cache"
	"cantine/internal/core"
	"cantine/internal/log"
	"cantine/internal/middleware/ratelimit"
	"cantine/internal/middleware/security"
	"cantine/internal/middleware/trace"
	"cantine/internal/services"
)

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	// Backend names the storage backend, reported by /metrics.
	Backend string
	// Ready is probed by /readyz; nil means always ready.
	Ready func(context.Context) error
	// CacheTTL bounds how long a dashboard stays cached. Writes through the
	// service invalidate it immediately; the TTL covers edits made elsewhere.
	CacheTTL time.Duration
	// Location decides which month is "current" when none is requested.
	Location  *time.Location
	RateLimit ratelimit.Config
	// TrustedProxies are CIDRs allowed to report the client address.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc     *services.RecordService
	backend string
	ready   func(context.Context) error
	loc     *time.Location
	logger  *log.Logger
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Dashboards keyed by store version and month
	dashCache    *cache.LRUCache[core.Dashboard]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.RecordService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RateLimit == (ratelimit.Config{}) {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:          svc,
		backend:      opts.Backend,
		ready:        opts.Ready,
		loc:          opts.Location,
		logger:       logger,
		started:      time.Now(),
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(),
		dashCache:    cache.NewLRUCache[core.Dashboard](50, opts.CacheTTL),
		cacheManager: cache.NewManager(opts.Logger),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)
	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("GET /api/records/{date}", s.handleGetRecord)
	mux.HandleFunc("PUT /api/records/{date}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{date}", s.handleDeleteRecord)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request, retry time.Duration) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", ratelimit.RetryAfterSeconds(retry)).
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Backend not ready",
				log.FieldBackend, s.backend,
				log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsResponse struct {
	Backend       string                    `json:"backend"`
	Uptime        string                    `json:"uptime"`
	StoreVersion  uint64                    `json:"storeVersion"`
	Requests      trace.Metrics             `json:"requests"`
	RateLimit     ratelimit.Metrics         `json:"rateLimit"`
	Security      security.DetectionMetrics `json:"security"`
	DashboardHits cache.Stats               `json:"dashboardCache"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(metricsResponse{
		Backend:       s.backend,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		StoreVersion:  s.svc.Version(),
		Requests:      s.tracer.GetMetrics(),
		RateLimit:     s.limiter.GetMetrics(),
		Security:      s.detector.GetMetrics(),
		DashboardHits: s.dashCache.Stats(),
	}).Write(w)
}

// dashboard returns the dashboard for month, serving it from cache while the
// store version is unchanged.
func (s *Server) dashboard(ctx context.Context, month core.MonthKey) (core.Dashboard, error) {
	key := fmt.Sprintf("%d|%s", s.svc.Version(), month)
	return s.dashCache.GetOrLoad(ctx, key, func(ctx context.Context) (core.Dashboard, error) {
		return s.svc.Dashboard(ctx, month)
	})
}
