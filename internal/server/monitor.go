package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/CK6170/Spectro-go/experiment"
	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/results"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) statusResponse(st experiment.Status) StatusResponse {
	out := StatusResponse{
		State:         st.State.String(),
		Running:       st.Running,
		ReadingsTaken: st.ReadingsTaken,
		Settings:      st.Settings,
		Message:       st.Message,
		LastError:     st.LastError,
	}
	if st.Last != nil {
		out.LastExperiment = st.Last.ExperimentID
		out.LastPeaks = st.Last.Peaks
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, 200, HealthResponse{
		OK:        true,
		Timestamp: time.Now(),
		Session:   s.session() != nil,
		Monitors:  s.hub.Len(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, 200, s.statusResponse(s.machine.Status()))
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	count, entries, err := s.store.List()
	if err != nil {
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	s.writeJSON(w, 200, ExperimentsResponse{Count: count, Experiments: entries})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSON(w, 400, APIError{Error: "missing id"})
		return
	}
	raw, err := s.store.Report(id)
	switch {
	case errors.Is(err, results.ErrBadID):
		s.writeJSON(w, 400, APIError{Error: err.Error()})
		return
	case errors.Is(err, results.ErrNotFound):
		s.writeJSON(w, 404, APIError{Error: "not found"})
		return
	case err != nil:
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
	w.WriteHeader(200)
	_, _ = w.Write(raw)
}
