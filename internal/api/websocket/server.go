package websocket

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server pushes analysis status updates to browsers
type Server struct {
	server *http.Server
	hub    *Hub
}

// NewServer creates a new WebSocket server and starts its hub
func NewServer() *Server {
	hub := NewHub()
	go hub.Run()
	return &Server{hub: hub}
}

// Hub returns the broadcast hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes served by the WebSocket server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/analyses", s.handleAnalyses)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start starts the WebSocket server
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.Handler(),
	}

	log.Printf("WebSocket server listening on :%s", port)
	return s.server.ListenAndServe()
}

// handleAnalyses upgrades the connection and subscribes it to job updates
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(v interface{}) {
	s.hub.Broadcast(v)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
