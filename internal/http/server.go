// Package http exposes the JSON API: auth, transaction/budget/category
// CRUD, reports, settings, translation, alerts and the Stripe endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"budgetbuddy/internal/alert"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/sample"
	"budgetbuddy/internal/session"
	"budgetbuddy/internal/storage"
)

// Translator is the slice of the translation service the API needs.
type Translator interface {
	Translate(ctx context.Context, text, target string) string
	TranslateBatch(ctx context.Context, texts []string, target string) []string
}

// EventPublisher hands payment-linked events to the worker queue.
type EventPublisher interface {
	PublishPaymentLinked(ctx context.Context, accountID, userID string) error
}

// Deps carries everything the server serves from. Publisher may be nil;
// sample generation then runs inline in the webhook handler.
type Deps struct {
	Store      *storage.Store
	Auth       *auth.Service
	Session    *session.Manager
	Translator Translator
	Monitor    *alert.Monitor
	Publisher  EventPublisher
	Sampler    *sample.Generator

	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	TranslateRateLimit  int
	TranslateRateWindow time.Duration
}

type Server struct {
	http.Server

	store      *storage.Store
	auth       *auth.Service
	session    *session.Manager
	translator Translator
	monitor    *alert.Monitor
	publisher  EventPublisher
	sampler    *sample.Generator

	stripeSecretKey     string
	stripeWebhookSecret string
	checkoutSuccessURL  string
	checkoutCancelURL   string

	translateLimiter *rateLimiter
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:               deps.Store,
		auth:                deps.Auth,
		session:             deps.Session,
		translator:          deps.Translator,
		monitor:             deps.Monitor,
		publisher:           deps.Publisher,
		sampler:             deps.Sampler,
		stripeSecretKey:     deps.StripeSecretKey,
		stripeWebhookSecret: deps.StripeWebhookSecret,
		checkoutSuccessURL:  deps.CheckoutSuccessURL,
		checkoutCancelURL:   deps.CheckoutCancelURL,
		translateLimiter:    newRateLimiter(deps.TranslateRateLimit, deps.TranslateRateWindow),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.withAPI(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/signin", s.withAPI(s.handleSignIn))
	mux.HandleFunc("POST /api/auth/signout", s.withAPI(s.handleSignOut))

	mux.HandleFunc("GET /api/transactions", s.withAPI(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withAPI(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withAPI(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withAPI(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withAPI(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.withAPI(s.handleListBudgets))
	mux.HandleFunc("PUT /api/budgets", s.withAPI(s.handlePutBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withAPI(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/categories", s.withAPI(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withAPI(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withAPI(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withAPI(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/accounts", s.withAPI(s.handleListAccounts))

	mux.HandleFunc("GET /api/reports/summary", s.withAPI(s.handleReportSummary))
	mux.HandleFunc("GET /api/reports/monthly", s.withAPI(s.handleReportMonthly))
	mux.HandleFunc("GET /api/reports/budgets", s.withAPI(s.handleReportBudgets))

	mux.HandleFunc("GET /api/settings", s.withAPI(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withAPI(s.handlePutSettings))

	mux.HandleFunc("GET /api/alerts", s.withAPI(s.handleGetAlerts))
	mux.HandleFunc("POST /api/alerts/dismiss", s.withAPI(s.handleDismissAlerts))

	mux.HandleFunc("POST /api/translate", s.withAPI(s.handleTranslate))

	mux.HandleFunc("POST /api/payments/checkout-session", s.withAPI(s.handleCheckoutSession))
	mux.HandleFunc("POST /api/webhooks/stripe", s.handleStripeWebhook)

	return s
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.translateLimiter != nil {
			s.translateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withAPI adds request tracing, security headers and request logging.
func (s *Server) withAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP(r))

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// clientIP extracts the client address, honoring proxy headers. The
// X-Forwarded-For header can carry a comma-separated hop chain; only the
// first element is the originating client.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requireSession resolves the active user or writes a 401.
func (s *Server) requireSession(w http.ResponseWriter) (string, bool) {
	userID, err := s.session.UserID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not signed in")
		return "", false
	}
	return userID, true
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
