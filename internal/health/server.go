package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// Source reports the pipeline state shown on /status
type Source interface {
	Status() string
	Queued() int
	Answered() int
}

// Server provides HTTP health and status endpoints
type Server struct {
	server *http.Server
}

// New creates a new health check server
func New(addr string, src Source) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: Handler(src),
		},
	}
}

// Handler serves /health and /status
func Handler(src Source) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Status   string `json:"status"`
			Queued   int    `json:"queued"`
			Answered int    `json:"answered"`
		}{src.Status(), src.Queued(), src.Answered()})
	})

	return mux
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Printf("Health check server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down health check server...")
	return s.server.Shutdown(ctx)
}
