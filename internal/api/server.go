package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/cipher-sentinel/internal/api/middleware"
	"github.com/khanhnv2901/cipher-sentinel/internal/application/session"
	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/domain/policy"
	"github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/capture"
	jsonstore "github.com/khanhnv2901/cipher-sentinel/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/cipher-sentinel/internal/report"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// SessionService is the evaluation session the server fronts.
type SessionService interface {
	Observe(ctx context.Context, obs host.Observation) error
	Navigate(ctx context.Context) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
	Evaluate(ctx context.Context, name string) (checker.Evaluation, bool, error)
	HostCount(ctx context.Context) (int, error)
	Policy() (*policy.Document, error)
	Ready() bool
}

type Config struct {
	Session      SessionService
	PolicySource string
	Location     *time.Location // Display zone for validity timestamps (nil = local)
	AuthToken    string
	Logger       *zap.Logger
	CORSOrigins  []string // Allowed CORS origins (empty = allow all)
	RateLimit    int      // Requests per second per IP (0 = disabled)
	RateBurst    int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
}

type eventResponse struct {
	Status string `json:"status"`
	Host   string `json:"host,omitempty"`
}

type hostsResponse struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Summary     report.Summary `json:"summary"`
	Rows        []report.Row   `json:"rows"`
}

type alertsResponse struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Alerts      []report.Alert `json:"alerts"`
	Lines       []string       `json:"lines"`
}

type readyResponse struct {
	Status string `json:"status"`
	Hosts  int    `json:"hosts"`
}

type hostResponse struct {
	Row        report.Row         `json:"row"`
	Evaluation checker.Evaluation `json:"evaluation"`
}

type policyResponse struct {
	Source         string              `json:"source,omitempty"`
	Policy         jsonstore.PolicyDTO `json:"policy"`
	CheckedHeaders []string            `json:"checkedHeaders"`
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply middleware chain: RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Version 1 routes are primary; unversioned routes alias them
	for _, prefix := range []string{"/api/v1", "/api"} {
		s.mux.Handle(prefix+"/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
		s.mux.Handle(prefix+"/ready", s.withAuth(http.HandlerFunc(s.handleReady)))
		s.mux.Handle(prefix+"/events", s.withAuth(http.HandlerFunc(s.handleEvents)))
		s.mux.Handle(prefix+"/navigate", s.withAuth(http.HandlerFunc(s.handleNavigate)))
		s.mux.Handle(prefix+"/hosts", s.withAuth(http.HandlerFunc(s.handleHosts)))
		s.mux.Handle(prefix+"/hosts/{name}", s.withAuth(http.HandlerFunc(s.handleHost)))
		s.mux.Handle(prefix+"/alerts", s.withAuth(http.HandlerFunc(s.handleAlerts)))
		s.mux.Handle(prefix+"/export", s.withAuth(http.HandlerFunc(s.handleExport)))
		s.mux.Handle(prefix+"/report", s.withAuth(http.HandlerFunc(s.handleReport)))
		s.mux.Handle(prefix+"/policy", s.withAuth(http.HandlerFunc(s.handlePolicy)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if !s.cfg.Session.Ready() {
		s.writeError(w, r, http.StatusServiceUnavailable, sharedErrors.ErrPolicyNotReady)
		return
	}
	hosts, err := s.cfg.Session.HostCount(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready", Hosts: hosts})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxEventBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}

	obs, navigate, ok, err := capture.DecodeLine(body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	switch {
	case navigate:
		if err := s.cfg.Session.Navigate(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusAccepted, eventResponse{Status: "navigated"})
	case ok:
		if err := s.cfg.Session.Observe(r.Context(), obs); err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		status := "accepted"
		if obs.Facts == nil {
			status = "ignored"
		}
		writeJSON(w, http.StatusAccepted, eventResponse{Status: status, Host: obs.Host})
	default:
		writeJSON(w, http.StatusAccepted, eventResponse{Status: "ignored"})
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if err := s.cfg.Session.Navigate(r.Context()); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	snap, view, ok := s.buildView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hostsResponse{
		GeneratedAt: snap.GeneratedAt,
		Summary:     view.Summary(),
		Rows:        view.Rows,
	})
}

// handleHost evaluates a single host. Names are matched exactly, port included.
func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	name := r.PathValue("name")
	eval, found, err := s.cfg.Session.Evaluate(r.Context(), name)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if !found {
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", sharedErrors.ErrHostNotFound, name))
		return
	}
	view := report.BuildView([]checker.Evaluation{eval}, report.DefaultFilter(), report.WithLocation(s.cfg.Location))
	writeJSON(w, http.StatusOK, hostResponse{Row: view.Rows[0], Evaluation: eval})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	snap, view, ok := s.buildView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{
		GeneratedAt: snap.GeneratedAt,
		Alerts:      view.Alerts,
		Lines:       view.AlertLines(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	snap, err := s.cfg.Session.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ExportFilename))
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, snap.Evaluations); err != nil {
		s.requestLogger(r).Error("failed to write export", zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "pdf" && format != "json" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %s (must be html, pdf, or json)", sharedErrors.ErrUnsupportedFormat, format))
		return
	}

	snap, view, ok := s.buildView(w, r)
	if !ok {
		return
	}
	meta := report.Meta{
		GeneratedAt:   snap.GeneratedAt,
		PolicySource:  s.cfg.PolicySource,
		MinTLSVersion: snap.Policy.MinTLSVersion(),
		MinRSABits:    snap.Policy.MinRSABits(),
	}

	var err error
	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = report.WriteHTML(w, view, meta)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		err = report.WritePDF(w, view, meta)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		err = report.WriteJSON(w, snap.Evaluations)
	}
	if err != nil {
		s.requestLogger(r).Error("failed to render report", zap.String("format", format), zap.Error(err))
	}
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	doc, err := s.cfg.Session.Policy()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, policyResponse{
		Source:         s.cfg.PolicySource,
		Policy:         jsonstore.ToPolicyDTO(doc),
		CheckedHeaders: checker.CheckedHeaders(),
	})
}

// buildView evaluates the session and applies the filter and severity query
// parameters. It writes the error response itself and reports ok=false.
func (s *Server) buildView(w http.ResponseWriter, r *http.Request) (session.Snapshot, report.View, bool) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return session.Snapshot{}, report.View{}, false
	}
	snap, err := s.cfg.Session.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return session.Snapshot{}, report.View{}, false
	}
	return snap, report.BuildView(snap.Evaluations, filter, report.WithLocation(s.cfg.Location)), true
}

// parseFilter reads ?filter=<host substring>&severity=info,warning,critical.
// An absent severity parameter shows every severity.
func parseFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	filter := report.DefaultFilter()
	filter.Host = strings.TrimSpace(q.Get("filter"))

	raw, present := q["severity"]
	if !present {
		return filter, nil
	}
	var sevs []checker.Severity
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			sev, err := checker.ParseSeverity(part)
			if err != nil {
				return report.Filter{}, err
			}
			sevs = append(sevs, sev)
		}
	}
	return filter.Only(sevs...), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrPolicyNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, sharedErrors.ErrInvalidObservation):
		return http.StatusBadRequest
	case errors.Is(err, sharedErrors.ErrHostNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip rate limiting if disabled
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientIP(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)

		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller address, preferring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			ip = strings.TrimSpace(forwarded[:idx])
		} else {
			ip = strings.TrimSpace(forwarded)
		}
	}
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		ip = ip[:idx]
	}
	return ip
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Determine if origin is allowed
		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("http_request",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", lrw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", lrw.bytesWritten),
			)
		}
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// Sanitize error messages to prevent information disclosure
	msg := err.Error()

	// For 5xx errors, return generic message and log details server-side.
	// A missing policy is reported as is so clients can tell it from an empty result.
	if status >= 500 && !errors.Is(err, sharedErrors.ErrPolicyNotReady) {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}

	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
	}
	// Start cleanup goroutine to remove stale limiters
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[ip]
	if !exists {
		limiter = &ipLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rps), burst),
			lastSeen: time.Now(),
		}
		m.limiters[ip] = limiter
	} else {
		limiter.lastSeen = time.Now()
	}

	return limiter.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		for ip, limiter := range m.limiters {
			if time.Since(limiter.lastSeen) > 5*time.Minute {
				delete(m.limiters, ip)
			}
		}
		m.mu.Unlock()
	}
}
