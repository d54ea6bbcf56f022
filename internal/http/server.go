// Package http exposes the REST API of the finance tracker.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type Server struct {
	http.Server

	auth   *services.AuthService
	users  *services.UserService
	ledger *services.LedgerService

	allowedOrigins []string
	rateLimiter    *rateLimiter
	metrics        *securityMetrics

	// Per-user summary cache, invalidated on every ledger mutation.
	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, auth *services.AuthService, users *services.UserService, ledger *services.LedgerService, allowedOrigins []string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:           auth,
		users:          users,
		ledger:         ledger,
		allowedOrigins: allowedOrigins,
		rateLimiter:    newRateLimiter(),
		metrics:        &securityMetrics{},
		summaryCache:   cache.NewLRUCache[core.Summary](500, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.wrap(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.wrap(s.handleLogin))
	mux.HandleFunc("POST /api/auth/forgot-password", s.wrap(s.handleForgotPassword))
	mux.HandleFunc("GET /api/auth/verify", s.wrap(s.handleVerify))

	mux.HandleFunc("POST /api/transactions", s.wrap(s.withUser(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions", s.wrap(s.withUser(s.handleListTransactions)))
	mux.HandleFunc("GET /api/transactions/summary", s.wrap(s.withUser(s.handleSummary)))
	mux.HandleFunc("GET /api/transactions/export", s.wrap(s.withUser(s.handleExportTransactions)))
	mux.HandleFunc("PUT /api/transactions/{id}", s.wrap(s.withUser(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.wrap(s.withUser(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /api/users/{id}", s.wrap(s.withUser(s.handleGetUser)))
	mux.HandleFunc("PUT /api/users/{id}", s.wrap(s.withUser(s.handleUpdateUser)))

	// Browser preflight for the API surface.
	mux.HandleFunc("OPTIONS /api/", s.handlePreflight)

	return s
}

// wrap adds security headers, CORS, rate limiting and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		httpLog := applog.NewStructuredLogger(logger)
		httpLog.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request detected",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		// Mutations are rate limited per client IP.
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		s.setCORSHeaders(w, r)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			if allowed == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Expose-Headers", "X-Auth-Token, Location")
			return
		}
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w, r)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token")
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}

// withUser resolves the X-Auth-Token header to an account and hands it to
// the handler. Any failure is a 401; the response does not say whether the
// token was malformed or the account unknown.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, *core.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}

		user, err := s.auth.ResolveUser(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r, &user)
	}
}

func (s *Server) summaryCacheKey(userID int64) string {
	return "summary:" + strconv.FormatInt(userID, 10)
}

func (s *Server) invalidateSummary(userID int64) {
	s.summaryCache.Delete(s.summaryCacheKey(userID))
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
