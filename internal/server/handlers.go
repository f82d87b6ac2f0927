package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/scheduler"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	ae := apperrors.As(err)
	s.writeJSON(w, ae.Status, apperrors.Body(ae))
}

// handleHealth is a liveness probe, unauthenticated and dependency-free.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScan runs POST /scan: universe scan only, no orders, no
// holdings sweep.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	cfg := s.configStore.Get()
	signals, err := s.trader.ScanUniverse(cfg.UniverseName, cfg.MaxNotionalKRW)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"signals": signals})
}

// handleRun runs POST /run: one synchronous cycle, returning the
// CycleResult. May execute concurrently with scheduled ticks; both
// share the Broker Client (spec.md §5).
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	cfg := s.configStore.Get()
	result := s.trader.RunCycle(cfg)
	s.writeJSON(w, http.StatusOK, result)
}

// handleGetConfig returns the current AutoTraderConfig.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.configStore.Get())
}

// handlePutConfig replaces the AutoTraderConfig atomically
// (copy-on-write; in-flight cycles keep using their own snapshot).
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.AutoTraderConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, apperrors.NewValidation("malformed config body", map[string]interface{}{"error": err.Error()}))
		return
	}
	s.configStore.Set(cfg)
	s.writeJSON(w, http.StatusOK, cfg)
}

type schedulerStartRequest struct {
	IntervalMinutes int  `json:"interval_minutes"`
	KROnly          bool `json:"kr_only"`
	USEnabled       bool `json:"us_enabled"`
}

// handleSchedulerStart starts the scheduler with the given interval
// and gating flags. No-op (200) if already running.
func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	var req schedulerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewValidation("malformed scheduler start body", map[string]interface{}{"error": err.Error()}))
		return
	}
	interval := time.Duration(req.IntervalMinutes) * time.Minute
	if err := s.scheduler.Start(interval, req.KROnly, req.USEnabled); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusPayload(s.scheduler.Status()))
}

// handleSchedulerStop stops the scheduler. No-op if already stopped.
func (s *Server) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Stop()
	s.writeJSON(w, http.StatusOK, statusPayload(s.scheduler.Status()))
}

// handleSchedulerStatus returns running-flag, interval, next-run
// instant, total cycles run, and the last CycleResult.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusPayload(s.scheduler.Status()))
}

// handleSchedulerHistory returns up to limit of the most recent
// CycleResults, newest first.
func (s *Server) handleSchedulerHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"history": s.scheduler.History(limit)})
}

func statusPayload(st scheduler.Status) map[string]interface{} {
	return map[string]interface{}{
		"state":        st.State,
		"interval_min": st.Interval.Minutes(),
		"kr_only":      st.KROnly,
		"us_enabled":   st.USEnabled,
		"next_run":     st.NextRun,
		"total_cycles": st.TotalCycles,
		"last_result":  st.LastResult,
	}
}
