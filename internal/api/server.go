// Package api exposes the reporting and alert lifecycle operations over
// HTTP/JSON. Handlers are thin lock-protected reads and single-map writes;
// they run concurrently with the monitor loop.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/alert"
	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/sla"
)

// Server routes dashboard API requests to the health and alerting core.
type Server struct {
	logger     *zap.Logger
	tracker    *sla.Tracker
	evaluator  *alert.Evaluator
	ledger     *alert.Ledger
	thresholds *alert.ThresholdStore
	router     *mux.Router
}

// NewServer builds the router over the given components.
func NewServer(logger *zap.Logger, tracker *sla.Tracker, evaluator *alert.Evaluator, ledger *alert.Ledger, thresholds *alert.ThresholdStore) *Server {
	s := &Server{
		logger:     logger.Named("api"),
		tracker:    tracker,
		evaluator:  evaluator,
		ledger:     ledger,
		thresholds: thresholds,
		router:     mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sla", s.handleSLAReport).Methods(http.MethodGet)
	api.HandleFunc("/sla/{target}", s.handleTargetSLA).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/history", s.handleAlertHistory).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledge).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/unacknowledge", s.handleUnacknowledge).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/snooze", s.handleSnooze).Methods(http.MethodPost)
	api.HandleFunc("/thresholds", s.handleGetThresholds).Methods(http.MethodGet)
	api.HandleFunc("/thresholds", s.handleUpdateThresholds).Methods(http.MethodPut)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSLAReport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Report())
}

func (s *Server) handleTargetSLA(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["target"]
	summary, ok := s.tracker.TargetSLA(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown target: "+name)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.evaluator.CurrentAlerts()
	if alerts == nil {
		alerts = []model.Alert{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		limit = parsed
	}

	severity := model.AlertSeverity(r.URL.Query().Get("severity"))
	history := s.ledger.History(limit, severity)
	if history == nil {
		history = []model.Alert{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.ledger.Acknowledge(id)
	s.logger.Info("Alert acknowledged", zap.String("alert_id", id))
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUnacknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.ledger.Unacknowledge(id)
	s.logger.Info("Alert unacknowledged", zap.String("alert_id", id))
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Minutes int `json:"minutes"`
	}
	if r.Body != nil {
		// an empty body means the configured default duration
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Minutes < 0 {
		s.writeError(w, http.StatusBadRequest, "minutes must not be negative")
		return
	}
	if body.Minutes == 0 {
		body.Minutes = s.thresholds.Get().SnoozeDefaultMinutes
	}

	s.ledger.Snooze(id, time.Duration(body.Minutes)*time.Minute)
	s.logger.Info("Alert snoozed",
		zap.String("alert_id", id),
		zap.Int("minutes", body.Minutes))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"minutes": body.Minutes,
	})
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.thresholds.Get())
}

func (s *Server) handleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var cfg model.Thresholds
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid threshold payload: "+err.Error())
		return
	}

	updated, err := s.thresholds.Update(cfg)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.logger.Info("Thresholds updated")
	s.writeJSON(w, http.StatusOK, updated)
}
