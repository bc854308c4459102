package primaryserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/rules"
)

var errReviewNotFound = errors.New("review not found")

type snapshotResponse struct {
	models.Snapshot
	Rows []models.Row `json:"rows"`
}

type statusResponse struct {
	State     string `json:"state"`
	SessionID uint64 `json:"session_id"`
	Pending   int    `json:"pending"`
	LastError string `json:"last_error,omitempty"`
}

type navigateResponse struct {
	Review  models.ReviewView      `json:"review"`
	Request models.AnalysisRequest `json:"request"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := models.DefaultRequest("")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	req, err := req.Validate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := rules.NewPosition(req.FEN); err != nil {
		http.Error(w, "invalid FEN: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.Enqueue(req)
	writeJSON(w, http.StatusAccepted, req)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.EnqueueStop()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.analyzer.Snapshot()
	multiPV := snap.Request.MultiPV
	if v := r.URL.Query().Get("multipv"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > models.MaxMultiPV {
			http.Error(w, "invalid multipv parameter", http.StatusBadRequest)
			return
		}
		multiPV = n
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, Rows: snap.Rows(multiPV)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	lastErr := s.lastErr
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, statusResponse{
		State:     s.analyzer.State().String(),
		SessionID: s.analyzer.SessionID(),
		Pending:   s.Pending(),
		LastError: lastErr,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		view, ok := s.GetReview(id)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case http.MethodPost:
		var sub models.ReviewSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		view, err := s.SubmitReview(sub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Enqueue(models.DefaultRequest(view.FEN))
		writeJSON(w, http.StatusCreated, view)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	view, req, err := s.NavigateReview(q.Get("id"), q.Get("to"))
	switch {
	case errors.Is(err, errReviewNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Enqueue(req)
	writeJSON(w, http.StatusOK, navigateResponse{Review: view, Request: req})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
