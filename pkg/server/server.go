package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/neemo/pkg/api"
	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/logging"
)

// Server serves the REST API for the databases of one manager.
type Server struct {
	router *mux.Router
	mgr    *db.Manager
	logger logging.Logger

	mu   sync.Mutex
	http *http.Server
}

// NewServer creates a new instance of Server.
func NewServer(mgr *db.Manager, logger logging.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		mgr:    mgr,
		logger: logging.OrDiscard(logger),
	}
	api.NewHandler(mgr, s.logger).RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(s.requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warnf("[server] no route found for %s %s", r.Method, r.URL.Path)
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})

	return s
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Infof("[server] request %s %s took %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Infof("[server] listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the active database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if cerr := s.mgr.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.logger.Infof("[server] stopped")
	return err
}
