// Package health serves the liveness endpoint hosting platforms poll to keep
// the bot's container alive.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server answers GET / and GET /healthz with a fixed status document.
type Server struct {
	addr    string
	name    string
	started time.Time
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a server for addr (e.g. ":10000"). name is reported as the
// service field.
func New(addr, name string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		name:    name,
		started: time.Now(),
		logger:  logger,
		now:     time.Now,
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	status := withJSON(func(w http.ResponseWriter, r *http.Request) (any, int, error) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			return nil, http.StatusMethodNotAllowed, errors.New("method not allowed")
		}
		return map[string]any{
			"status":         "online",
			"service":        s.name,
			"uptime_seconds": int64(s.now().Sub(s.started).Seconds()),
		}, http.StatusOK, nil
	})
	mux.HandleFunc("/healthz", status)
	mux.HandleFunc("/{$}", status)
	return s.logRequest(mux)
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("health server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withJSON(handler func(http.ResponseWriter, *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, status, err := handler(w, r)
		if err != nil {
			writeJSON(w, status, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, status, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("health request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
