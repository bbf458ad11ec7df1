package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendvoice/internal/cache"
	"spendvoice/internal/log"
	"spendvoice/internal/middleware/ratelimit"
	"spendvoice/internal/middleware/security"
	"spendvoice/internal/middleware/trace"
	"spendvoice/internal/parser"
	"spendvoice/internal/services"
	"spendvoice/internal/storage"
)

const (
	// maxBodyBytes caps every request body.
	maxBodyBytes = 64 << 10

	monthCacheSize = 24
	monthCacheTTL  = 5 * time.Minute
)

// Deps are the collaborators the API serves.
type Deps struct {
	Parser  *parser.Parser
	Saver   *services.SaveCoordinator
	Ledger  *storage.Ledger
	Store   storage.Backend
	Logger  *log.Logger
	Metrics http.Handler // mounted at /metrics when non-nil

	RateLimitPerMinute int
}

// Server is the JSON API consumed by the speech front end.
type Server struct {
	http.Server

	parser *parser.Parser
	saver  *services.SaveCoordinator
	ledger *storage.Ledger
	store  storage.Backend
	logger *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector

	months       *cache.LRUCache[monthView]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 64 << 10,
		},
		parser:   deps.Parser,
		saver:    deps.Saver,
		ledger:   deps.Ledger,
		store:    deps.Store,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector: security.NewDetector(),
		months:   cache.NewLRUCache[monthView](monthCacheSize, monthCacheTTL),
	}
	s.cacheManager = cache.NewManager(func(removed int) {
		logger.Debug("Month cache cleanup completed", "entries_removed", removed)
	})
	s.cacheManager.Register(s.months)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("POST /api/parse", s.handleParse)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/today", s.handleToday)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/months/{ym}", s.handleMonth)
	mux.HandleFunc("DELETE /api/months/{ym}", s.handleClearMonth)
	mux.HandleFunc("GET /api/settings/webhook", s.handleGetWebhook)
	mux.HandleFunc("PUT /api/settings/webhook", s.handlePutWebhook)
	mux.HandleFunc("GET /api/corrections", s.handleCorrections)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("DELETE /api/data", s.handleEraseAll)

	var h http.Handler = mux
	h = limitBody(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.limitWrites(h)
	h = s.flagSuspicious(h)
	h = log.Middleware(logger, s.detector.ExtractClientIP, trace.GetRequestID)(h)
	h = trace.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// limitWrites applies the per-client rate limit to mutating requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateMonths drops every cached month view after a write.
func (s *Server) invalidateMonths() {
	s.months.Purge()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
