package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/samandartukhtayev/user-directory/logging"
)

const shutdownTimeout = 5 * time.Second

// Server serves the directory page
type Server struct {
	srv    *http.Server
	router *mux.Router
	log    *logging.Logger
}

// NewServer builds the router: the page at / and a health check
func NewServer(addr string, page *PageHandler, logger *logging.Logger) *Server {
	log := logger.With("AppServer")

	router := mux.NewRouter()
	router.Use(requestLogger(log))
	router.Handle("/", page).Methods(http.MethodGet)
	router.HandleFunc("/healthz", health).Methods(http.MethodGet)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
		log:    log,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.Info("listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to 5 seconds for pages in flight
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	return s.srv.Shutdown(ctx)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
