package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorekeep/lorekeep/internal/common"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	// The acquisition loop must outlive this request.
	s.daemon.Start(context.WithoutCancel(r.Context()))
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(s.daemon.State())})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.daemon.Pause()
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(s.daemon.State())})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.daemon.Resume(context.WithoutCancel(r.Context()))
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(s.daemon.State())})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.daemon.Stop()
	s.respondJSON(w, http.StatusOK, map[string]string{"state": string(s.daemon.State())})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.daemon.Stats())
}

// harvestRequest is the targeted-harvest payload.
type harvestRequest struct {
	Categories []string `json:"categories"`
	Count      int      `json:"count"`
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Categories) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one category is required")
		return
	}
	if req.Count <= 0 {
		s.respondError(w, http.StatusBadRequest, "count must be positive")
		return
	}

	result, err := s.daemon.HarvestCategories(r.Context(), req.Categories, req.Count)
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			s.respondError(w, http.StatusConflict, "no generator configured")
			return
		}
		slog.Error("harvest failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleEnableSource(w http.ResponseWriter, r *http.Request) {
	s.toggleSource(w, r, true)
}

func (s *Server) handleDisableSource(w http.ResponseWriter, r *http.Request) {
	s.toggleSource(w, r, false)
}

func (s *Server) toggleSource(w http.ResponseWriter, r *http.Request, enabled bool) {
	name := chi.URLParam(r, "name")

	var err error
	if enabled {
		err = s.daemon.EnableSource(name)
	} else {
		err = s.daemon.DisableSource(name)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "unknown source")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"source": name, "enabled": enabled})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(s.daemon.State()),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
