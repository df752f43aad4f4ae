package tap

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// Server exposes the tap WebSocket endpoint plus a /stats snapshot of the
// pipe counters.
type Server struct {
	hub  *Hub
	addr string
	srv  *http.Server
}

// NewServer creates a tap server. stats is called per /stats request and its
// result is rendered as JSON; nil disables the endpoint.
func NewServer(addr string, hub *Hub, stats func() any) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/tap", hub.HandleWS)
	if stats != nil {
		mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(stats())
		})
	}

	return &Server{
		hub:  hub,
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[tap] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[tap] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the tap server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
