// REST API exposing telemetry, mode, and fault injection
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cubesat-sim/internal/logging"
	"cubesat-sim/internal/metrics"
	"cubesat-sim/internal/recovery"
	"cubesat-sim/internal/sim"
	"cubesat-sim/internal/telemetry"
)

// Server exposes the simulator over HTTP with its own mux.
type Server struct {
	sim *sim.Simulator
	mux *http.ServeMux
}

// FaultRequest is the POST /simulate/fault body.
type FaultRequest struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// FaultResponse confirms an accepted fault injection.
type FaultResponse struct {
	Message   string  `json:"message"`
	FaultType string  `json:"fault_type"`
	Duration  float64 `json:"duration"`
	Telemetry any     `json:"telemetry"`
}

// ModeResponse reports the current satellite mode.
type ModeResponse struct {
	Mode      telemetry.SatelliteMode `json:"mode"`
	Timestamp time.Time               `json:"timestamp"`
}

// NewServer creates the API server and registers all routes.
func NewServer(simulator *sim.Simulator) *Server {
	s := &Server{sim: simulator, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /telemetry/latest", s.handleLatest)
	s.mux.HandleFunc("GET /telemetry/logs", s.handleLogs)
	s.mux.HandleFunc("GET /mode", s.handleMode)
	s.mux.HandleFunc("GET /downlink", s.handleDownlink)
	s.mux.HandleFunc("POST /simulate/fault", s.handleFault)
	s.mux.HandleFunc("GET /recovery/status", s.handleRecoveryStatus)
	s.mux.HandleFunc("GET /recovery/history", s.handleRecoveryHistory)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return metrics.Middleware(cors(s.mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("stopping API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// cors allows any origin, mirroring the permissive defaults of a local
// ground-station dashboard setup.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "CubeSat Telemetry API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"telemetry":        "/telemetry/latest",
			"logs":             "/telemetry/logs",
			"mode":             "/mode",
			"downlink":         "/downlink",
			"fault_injection":  "POST /simulate/fault",
			"recovery_status":  "/recovery/status",
			"recovery_history": "/recovery/history",
			"health":           "/health",
			"metrics":          "/metrics",
		},
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sim.Latest()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	events := s.sim.Events(limit)
	if events == nil {
		events = []telemetry.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModeResponse{
		Mode:      s.sim.Mode(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleDownlink(w http.ResponseWriter, r *http.Request) {
	data, err := s.sim.Downlink()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleFault(w http.ResponseWriter, r *http.Request) {
	var req FaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind := telemetry.FaultKind(req.Type)
	duration := time.Duration(req.Duration * float64(time.Second))

	if err := s.sim.InjectFault(kind, duration); err != nil {
		if errors.Is(err, sim.ErrInvalidFault) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var tele any
	if snap, err := s.sim.Latest(); err == nil {
		tele = snap
	}
	writeJSON(w, http.StatusOK, FaultResponse{
		Message:   "Fault injected successfully",
		FaultType: req.Type,
		Duration:  req.Duration,
		Telemetry: tele,
	})
}

func (s *Server) handleRecoveryStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.RecoveryStatus())
}

func (s *Server) handleRecoveryHistory(w http.ResponseWriter, r *http.Request) {
	history := s.sim.RecoveryHistory()
	if history == nil {
		history = []recovery.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.sim.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"simulator_running": err == nil,
		"current_mode":      s.sim.Mode(),
		"timestamp":         time.Now().UTC(),
	})
}
