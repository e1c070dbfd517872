package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/pitchside/internal/analysis"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/repository"
)

// AnalysisService queues and reports analysis jobs.
type AnalysisService interface {
	Enqueue(ctx context.Context, url string) (*store.AnalysisJob, error)
	GetJob(ctx context.Context, jobID string) (*store.AnalysisJob, error)
	ListJobs(ctx context.Context) ([]*store.AnalysisJob, error)
}

// Artefacts reads what completed jobs produced.
type Artefacts interface {
	EventsCSV(ctx context.Context, jobID string) (string, error)
	RawJSON(ctx context.Context, jobID string) (string, error)
	Summary(ctx context.Context, jobID string) (string, error)
}

// AnalysisHandler proxies API calls to the analysis service.
type AnalysisHandler struct {
	service   AnalysisService
	artefacts Artefacts
}

// NewAnalysisHandler wires the REST layer to the analysis service.
func NewAnalysisHandler(service AnalysisService, artefacts Artefacts) *AnalysisHandler {
	return &AnalysisHandler{service: service, artefacts: artefacts}
}

type apiAnalysisRequest struct {
	URL string `json:"url"`
}

// HandleCreate handles POST /api/v1/analyses
func (h *AnalysisHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req apiAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.service.Enqueue(r.Context(), req.URL)
	if errors.Is(err, analysis.ErrInvalidURL) {
		respondError(w, http.StatusBadRequest, "Invalid match URL", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue analysis", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": jobPayload(job),
	})
}

// HandleList handles GET /api/v1/analyses
func (h *AnalysisHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list analyses", err)
		return
	}

	payload := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, jobPayload(job))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  payload,
		"count": len(payload),
	})
}

// HandleGet handles GET /api/v1/analyses/{jobID}
func (h *AnalysisHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	job, err := h.service.GetJob(r.Context(), jobID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Analysis not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch analysis", err)
		return
	}

	response := map[string]interface{}{
		"job": jobPayload(job),
	}
	if job.Status == store.JobStatusCompleted {
		summary, err := h.artefacts.Summary(r.Context(), jobID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, "Failed to fetch summary", err)
			return
		}
		if summary != "" {
			response["summary"] = json.RawMessage(summary)
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// HandleEventsCSV handles GET /api/v1/analyses/{jobID}/events.csv
func (h *AnalysisHandler) HandleEventsCSV(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	text, err := h.artefacts.EventsCSV(r.Context(), jobID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No event table for this analysis", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch event table", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events-`+jobID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// HandleRawJSON handles GET /api/v1/analyses/{jobID}/raw.json
func (h *AnalysisHandler) HandleRawJSON(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	text, err := h.artefacts.RawJSON(r.Context(), jobID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No match object for this analysis", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch match object", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

func jobPayload(job *store.AnalysisJob) map[string]interface{} {
	if job == nil {
		return nil
	}

	payload := map[string]interface{}{
		"job_id":      job.JobID,
		"url":         job.URL,
		"status":      job.Status,
		"event_count": job.EventCount,
		"created_at":  job.CreatedAt,
		"updated_at":  job.UpdatedAt,
	}

	if job.StatusMessage.Valid {
		payload["status_message"] = job.StatusMessage.String
	}
	if job.MatchID.Valid {
		payload["match_id"] = job.MatchID.String
	}
	if job.BlobStage.Valid {
		payload["blob_stage"] = job.BlobStage.String
	}
	if job.ErrorKind.Valid {
		payload["error_kind"] = job.ErrorKind.String
	}
	if job.LastError.Valid {
		payload["last_error"] = job.LastError.String
	}
	if job.StartedAt.Valid {
		payload["started_at"] = job.StartedAt.Time
	}
	if job.CompletedAt.Valid {
		payload["completed_at"] = job.CompletedAt.Time
	}

	return payload
}
