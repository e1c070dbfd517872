package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/pitchside/internal/ingest/sofascore"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Options configures the REST server
type Options struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Dependencies are the services behind the REST routes
type Dependencies struct {
	Health    HealthChecker
	Analyses  AnalysisService
	Artefacts Artefacts
	Matches   MatchLister
	Summaries sofascore.SummaryFetcher
}

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
	router *mux.Router
}

// NewServer creates a new REST API server
func NewServer(port string, deps Dependencies, opts Options) *Server {
	handler := NewHandler(deps.Health, deps.Matches, deps.Summaries)
	analysisHandler := NewAnalysisHandler(deps.Analyses, deps.Artefacts)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware(opts.CORSOrigins))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(RateLimitMiddleware(opts.RateLimitRequests, opts.RateLimitWindow))

	// Analyses
	api.HandleFunc("/analyses", analysisHandler.HandleCreate).Methods("POST", "OPTIONS")
	api.HandleFunc("/analyses", analysisHandler.HandleList).Methods("GET")
	api.HandleFunc("/analyses/{jobID}", analysisHandler.HandleGet).Methods("GET")
	api.HandleFunc("/analyses/{jobID}/events.csv", analysisHandler.HandleEventsCSV).Methods("GET")
	api.HandleFunc("/analyses/{jobID}/raw.json", analysisHandler.HandleRawJSON).Methods("GET")

	// Matches
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/sofascore/{matchID:[0-9]+}/summary", handler.GetSofaScoreSummary).Methods("GET")

	return &Server{
		port:   port,
		router: router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
