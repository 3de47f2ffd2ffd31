package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"agri-advisor/internal/logger"
)

// Server wraps the HTTP listener for the decision API
type Server struct {
	httpServer *http.Server
	router     *mux.Router
}

// NewServer builds a router with the handler's routes and request middleware
func NewServer(addr string, handler *Handler) *Server {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, AccessLogMiddleware)
	handler.RegisterRoutes(router)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Router exposes the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start listens until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	logger.Printf("API: Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
