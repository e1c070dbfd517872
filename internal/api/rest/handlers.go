package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/pitchside/internal/ingest/sofascore"
	"github.com/fortuna/pitchside/internal/store"
)

// HealthChecker reports backing store health
type HealthChecker interface {
	HealthCheck() error
}

// MatchLister lists tracked matches
type MatchLister interface {
	List(ctx context.Context, limit int) ([]*store.TrackedMatch, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db        HealthChecker
	matches   MatchLister
	summaries sofascore.SummaryFetcher
}

// NewHandler creates a new handler
func NewHandler(db HealthChecker, matches MatchLister, summaries sofascore.SummaryFetcher) *Handler {
	return &Handler{db: db, matches: matches, summaries: summaries}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":  "healthy",
		"service": "pitchside",
		"version": Version,
	}
	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
	}
	respondJSON(w, status, body)
}

// GetMatches returns tracked matches, most recent first
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000", err)
			return
		}
		limit = n
	}

	matches, err := h.matches.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch matches", err)
		return
	}
	if matches == nil {
		matches = []*store.TrackedMatch{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// GetSofaScoreSummary returns momentum, score, metrics and lineups of a match
func (h *Handler) GetSofaScoreSummary(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseInt(mux.Vars(r)["matchID"], 10, 64)
	if err != nil || matchID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid match ID", err)
		return
	}

	summary, err := h.summaries.FetchSummary(r.Context(), matchID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to fetch match summary", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
