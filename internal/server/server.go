// Package server exposes a digest.Builder over HTTP.
//
//	GET /healthz                      database ping
//	GET /tables                       usable table names as JSON
//	GET /tables/{name}                digest of one table
//	GET /table-info?table=a&table=b   digest of the named tables, or all
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/schemadigest/internal/errs"
	"github.com/koustreak/schemadigest/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Digester is the part of digest.Builder the server needs.
type Digester interface {
	UsableTableNames() []string
	TableInfo(ctx context.Context, names ...string) (string, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	digest       Digester
	db           Pinger
	log          *logger.Logger
	queryTimeout time.Duration
}

// TablesResponse is the body of GET /tables.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// New creates a Server. A zero queryTimeout leaves request contexts
// unbounded; a nil log discards request logs.
func New(d Digester, db Pinger, log *logger.Logger, queryTimeout time.Duration) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{digest: d, db: db, log: log, queryTimeout: queryTimeout}
}

// Handler returns the routed handler with request id, logging and panic
// recovery middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/tables", s.tables)
	r.Get("/tables/{name}", s.table)
	r.Get("/table-info", s.tableInfo)
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.With().Str("addr", addr).Logger().Info("http server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "http server on "+addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "http server shutdown", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.WarnWith("health check failed", err, nil)
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) tables(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, TablesResponse{Tables: s.digest.UsableTableNames()})
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, chi.URLParam(r, "name"))
}

func (s *Server) tableInfo(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, r.URL.Query()["table"]...)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, names ...string) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	text, err := s.digest.TableInfo(ctx, names...)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.ErrorWith("render table info", err, map[string]interface{}{"tables": names})
		}
		s.writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		s.log.WarnWith("write table info response", err, nil)
	}
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Request(logger.HTTPRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Status:    status,
			Bytes:     ww.BytesWritten(),
			Duration:  time.Since(start),
			RequestID: middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WarnWith("encode response", err, nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{
		"error":   errs.KindOf(err).String(),
		"message": err.Error(),
	})
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
