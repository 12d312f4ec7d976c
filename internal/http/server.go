package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lifedash/internal/log"
	"lifedash/internal/middleware/ratelimit"
	"lifedash/internal/middleware/security"
	"lifedash/internal/middleware/trace"
	"lifedash/internal/session"
	"lifedash/internal/telemetry"
)

// Sessions hands out the per-user tracker sessions.
type Sessions interface {
	Habits(ctx context.Context, userID string) *session.HabitSession
	Finance(ctx context.Context, userID string) *session.FinanceSession
}

// Overviewer builds the dashboard summary.
type Overviewer interface {
	Overview(ctx context.Context, userID string, now time.Time) session.Overview
}

// Deps are the collaborators the API serves.
type Deps struct {
	Sessions  Sessions
	Dashboard Overviewer
	// Ready is consulted by /readyz; nil means always ready.
	Ready         func(ctx context.Context) error
	Logger        *log.Logger
	DefaultUserID string
	RateLimit     ratelimit.Config
	Now           func() time.Time
}

// Server wraps http.Server with the API routes and their middleware.
type Server struct {
	http.Server

	sessions      Sessions
	dashboard     Overviewer
	ready         func(ctx context.Context) error
	logger        *log.Logger
	errLog        *log.AccessLogger
	defaultUserID string
	now           func() time.Time
	startedAt     time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultUserID == "" {
		deps.DefaultUserID = "local"
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		sessions:      deps.Sessions,
		dashboard:     deps.Dashboard,
		ready:         deps.Ready,
		logger:        logger,
		errLog:        log.NewAccessLogger(logger.WithComponent(log.ComponentHTTP)),
		defaultUserID: deps.DefaultUserID,
		now:           deps.Now,
		startedAt:     deps.Now(),
		limiter:       ratelimit.NewLimiter(deps.RateLimit),
		detector:      security.NewDetector(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", telemetry.Handler())

	mux.HandleFunc("GET /api/habits", s.handleGetHabits)
	mux.HandleFunc("POST /api/habits", s.handleAddHabit)
	mux.HandleFunc("POST /api/habits/month", s.handleHabitMonth)
	mux.HandleFunc("DELETE /api/habits/{index}", s.handleRemoveHabit)
	mux.HandleFunc("POST /api/habits/toggle", s.handleToggleHabitDay)
	mux.HandleFunc("POST /api/habits/mental", s.handleAdjustMental)

	mux.HandleFunc("GET /api/finance", s.handleGetFinance)
	mux.HandleFunc("POST /api/finance/month", s.handleFinanceMonth)
	mux.HandleFunc("POST /api/finance/entries", s.handleAddEntry)
	mux.HandleFunc("DELETE /api/finance/entries/{category}/{index}", s.handleRemoveEntry)
	mux.HandleFunc("PUT /api/finance/starting-amount", s.handleSetStartingAmount)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ClientIP, logger)
	limit := s.limiter.Middleware(s.detector.ClientIP, isMutation, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.inspect(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func isMutation(r *http.Request) bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead
}

// inspect logs requests that look like probes. They are still served.
func (s *Server) inspect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.detector.Inspect(r); reason != "" {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				log.FieldClientIP, s.detector.ClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the limiter cleanup and drains the HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
