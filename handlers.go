package main

import (
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
)

// Handlers holds dependencies shared by HTTP handlers.
type Handlers struct {
	Cfg      Config
	Pipeline PipelineRunner
	Logger   *slog.Logger
}

// writeJSON is a small helper to send JSON responses with status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON error: %v", err)
	}
}

// ingestionRequest is the Orthanc webhook payload: at least the study ID
// (Orthanc internal identifier).
type ingestionRequest struct {
	ID   string `json:"ID"`
	Path string `json:"Path,omitempty"`
}

// IngestStudyHandler receives an Orthanc study notification (webhook or
// manual POST) and runs the full pipeline for it. Idempotent: processing
// the same study again updates the existing row and overwrites the same
// archive object.
//
// POST /api/v1/studies
func (h *Handlers) IngestStudyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	correlationID := correlationIDFrom(ctx)
	if correlationID == "" {
		// Middleware not wired; a deployment bug, not a pipeline failure.
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"detail": "missing correlation ID",
		})
		return
	}

	var req ingestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"detail": "body must include the Orthanc study ID",
		})
		return
	}

	if err := h.Pipeline.Run(ctx, correlationID, req.ID); err != nil {
		h.Logger.Error("ingestion failed",
			"correlation_id", correlationID,
			"orthanc_study_id", req.ID,
			"error", err.Error(),
		)
		// The pipeline already classified and dead-lettered; map to a
		// gateway-style error for the caller.
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"detail":         "pipeline failed: " + err.Error(),
			"correlation_id": correlationID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "accepted",
		"correlation_id": correlationID,
	})
}

// HealthHandler is the liveness probe.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler is the readiness probe. DB/Kafka reachability checks can be
// added here if rollout ever needs them.
func (h *Handlers) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
