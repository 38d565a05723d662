package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockpulse/backend/internal/analytics"
	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/logging"
	"stockpulse/backend/internal/service"
	"stockpulse/backend/internal/xid"
)

type Options struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type API struct {
	service        *service.Service
	auth           *TokenVerifier
	allowedOrigin  string
	requestTimeout time.Duration
	authLimiter    *attemptLimiter
	logger         *slog.Logger
}

func New(svc *service.Service, auth *TokenVerifier, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigin:  opts.AllowedOrigin,
		requestTimeout: opts.RequestTimeout,
		authLimiter:    newAttemptLimiter(20, time.Minute),
		logger:         opts.Logger.With("component", "http"),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/analytics/sales", a.requireAuth(a.handleSales))
	mux.HandleFunc("/api/v1/analytics/general", a.requireAuth(a.handleGeneral))
	mux.HandleFunc("/api/v1/analytics/sellers", a.requireAuth(a.handleSellers))
	mux.HandleFunc("/api/v1/analytics/payments", a.requireAuth(a.handlePayments))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if a.authLimiter.Blocked(client) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many failed authentication attempts"))
			return
		}

		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errMissingToken)
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.authLimiter.Fail(client)
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	result, err := a.service.Sales(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (a *API) handleGeneral(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	result, err := a.service.General(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (a *API) handleSellers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	var order domain.SortOrder
	switch strings.ToLower(strings.TrimSpace(query.Get("order"))) {
	case "", "top":
		order = domain.SortDesc
	case "low":
		order = domain.SortAsc
	default:
		writeError(w, http.StatusBadRequest, errors.New("order must be top or low"))
		return
	}
	limit := parsePositiveLimit(query.Get("limit"), analytics.DefaultRankLimit, analytics.MaxRankLimit)

	result, err := a.service.Sellers(r.Context(), order, limit, query.Get("filter"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (a *API) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	days := parsePositiveLimit(r.URL.Query().Get("days"), analytics.DefaultBreakdownDays, analytics.MaxBreakdownDays)
	result, err := a.service.Payments(r.Context(), days)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeData(w, http.StatusOK, result)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 128 {
			requestID = xid.New("req")
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		ctx, cancel := context.WithTimeout(logging.WithRequestID(r.Context(), requestID), a.requestTimeout)
		defer cancel()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelInfo
		if rec.status >= 500 {
			level = slog.LevelError
		}
		a.logger.Log(ctx, level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// statusFor maps engine errors to a status. Every fetch failure, timeouts
// included, is reported the same way.
func statusFor(err error) int {
	if errors.Is(err, analytics.ErrMissingUser) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError masks 5xx messages; the service layer has already logged the
// cause with the request context.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
