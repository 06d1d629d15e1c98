// Package web is the trigger surface: one endpoint that starts a booking
// run, plus token and outcome status for operators.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/poolside-scheduler/internal/auth"
	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/log"
	"github.com/example/poolside-scheduler/internal/notify"
	"github.com/example/poolside-scheduler/internal/orchestrator"
	"github.com/example/poolside-scheduler/internal/token"
)

type Server struct {
	Orch     *orchestrator.Orchestrator
	Auth     *auth.Manager
	Outcomes notify.Recorder

	// Margin mirrors the auth safety margin for status reporting.
	Margin time.Duration
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/run", s.handleRun)
	r.Get("/status", s.handleStatus)
	r.Get("/last-booking", s.handleLastBooking)
	r.Post("/token/refresh", s.handleTokenRefresh)

	return r
}

// handleRun starts exactly one orchestrator run and always answers with a
// definitive status: the caller is never left wondering whether a booking
// happened.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"
	outcome := s.Orch.Run(r.Context(), force)

	code := http.StatusInternalServerError
	switch outcome.Status {
	case booking.StatusConfirmed:
		code = http.StatusOK
	case booking.StatusExhausted:
		code = http.StatusConflict
	case booking.StatusSkipped:
		code = http.StatusAccepted
	case booking.StatusAborted:
		code = http.StatusBadGateway
	}
	writeJSON(w, code, outcome)
}

type statusResponse struct {
	TokenValid     bool      `json:"token_valid"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
	ExpiresInSecs  int64     `json:"expires_in_seconds,omitempty"`
	RefreshPending bool      `json:"refresh_pending,omitempty"`
	Error          string    `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Auth.Peek(r.Context())
	if errors.Is(err, token.ErrNoSession) {
		writeJSON(w, http.StatusNotFound, statusResponse{Error: "no stored session"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Error: err.Error()})
		return
	}
	now := time.Now()
	writeJSON(w, http.StatusOK, statusResponse{
		TokenValid:     sess.Usable(now, 0),
		ExpiresAt:      sess.ExpiresAt,
		ExpiresInSecs:  int64(sess.TTL(now).Seconds()),
		RefreshPending: !sess.Usable(now, s.Margin),
	})
}

func (s *Server) handleLastBooking(w http.ResponseWriter, r *http.Request) {
	o, found, err := s.Outcomes.Last(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "no bookings yet"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Auth.ForceRefresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		TokenValid:    true,
		ExpiresAt:     sess.ExpiresAt,
		ExpiresInSecs: int64(sess.TTL(time.Now()).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := log.Logger()
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// Start serves h until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger := log.Logger()
	logger.Info().Str("addr", addr).Msg("http server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
