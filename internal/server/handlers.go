package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"livefolio/internal/config"
	"livefolio/internal/modules/schema"
)

// maxUploadBytes bounds an uploaded CSV body
const maxUploadBytes = 5 << 20

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "livefolio",
	})
}

// handleSnapshot returns the latest published snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.state.Latest()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no snapshot published yet")
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

// handleRefresh requests an immediate refresh cycle
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	accepted := s.runner.Refresh()

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": accepted,
		"status":   s.runner.Status(),
	})
}

// handleSchedulerStatus returns the refresh loop state
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runner.Status())
}

// handleSetInterval overrides the refresh interval at runtime
func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Seconds <= 0 {
		s.writeError(w, http.StatusBadRequest, "seconds must be positive")
		return
	}

	applied := s.runner.SetInterval(body.Seconds, config.MinRefreshSeconds, config.MaxRefreshSeconds)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"interval_seconds": applied})
}

// handleUploadSource accepts a CSV upload for one of the three sources and
// triggers a refresh so the new data shows up promptly.
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	kind, err := schema.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload body")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	s.sources.SetUpload(kind, data)
	s.runner.Refresh()

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"kind":  kind,
		"bytes": len(data),
	})
}

// handleSession reports the current market session, both exchange-local and
// in the configured display timezone.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    s.clock.SessionAt(now),
		"timezone":   s.app.TimezoneName,
		"local_time": now.In(s.app.Timezone).Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
