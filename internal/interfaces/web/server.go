package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/route-scheduler/internal/application/usecases"
	"go.uber.org/zap"
)

// Server exposes the booking use cases as a JSON API.
type Server struct {
	Bookings *usecases.Bookings
	Log      *zap.Logger
	// bcrypt hash of the admin key; empty disables the admin routes.
	AdminKeyHash []byte
	Limiter      *RateLimiter
}

func New(bookings *usecases.Bookings, adminKeyHash string, requestsPerMin int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Bookings: bookings, Log: log}
	if adminKeyHash != "" {
		s.AdminKeyHash = []byte(adminKeyHash)
	}
	if requestsPerMin > 0 {
		s.Limiter = NewRateLimiter(requestsPerMin)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/schedule", s.handleSchedule)
	mux.HandleFunc("POST /api/bookings", s.handleCreate)
	mux.HandleFunc("POST /api/bookings/confirm", s.handleConfirm)
	mux.HandleFunc("GET /api/bookings", s.handleList)
	mux.HandleFunc("GET /api/bookings/{id}", s.handleGet)
	mux.HandleFunc("GET /api/days/{date}", s.handleDay)

	mux.HandleFunc("POST /api/bookings/{id}/cancel", s.requireAdmin(s.handleCancel))
	mux.HandleFunc("POST /api/bookings/{id}/complete", s.requireAdmin(s.handleComplete))
	mux.HandleFunc("DELETE /api/bookings/{id}", s.requireAdmin(s.handleDelete))

	mw := []func(http.Handler) http.Handler{s.recovery, s.logging}
	if s.Limiter != nil {
		mw = append(mw, s.Limiter.Limit)
	}
	return chain(mux, mw...)
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
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
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
