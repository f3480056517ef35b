package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/control"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/metrics"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

type Server struct {
	control *control.Service
	httpSrv *http.Server
}

type RelayResponse struct {
	Device string `json:"device"`
	State  string `json:"state"`
}

type RelayRequest struct {
	State string `json:"state"`
}

type WaterRequest struct {
	Grams int `json:"grams"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func NewServer(svc *control.Service) *Server {
	return &Server{control: svc}
}

// Handler returns the full route table wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/relays", s.handleRelays)
	mux.HandleFunc("/api/relays/", s.handleRelayOperations)
	mux.HandleFunc("/switch/", s.handleLegacySwitch)
	mux.HandleFunc("/api/water", s.handleWater)
	mux.HandleFunc("/api/image", s.handleImage)
	mux.HandleFunc("/api/sensors", s.handleSensors)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/datalog", s.handleDataLog)
	mux.Handle("/metrics", metrics.Handler())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("address", addr).Msg("Starting REST API server")

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleRelays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	states, err := s.control.States()
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleRelayOperations(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/relays/")
	parts := strings.Split(path, "/")

	a, err := model.ParseActuator(parts[0])
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getRelay(w, a)
	case len(parts) == 1 && r.Method == http.MethodPut:
		s.setRelay(w, r, a)
	case len(parts) == 2 && parts[1] == "toggle" && r.Method == http.MethodPost:
		s.toggleRelay(w, a)
	case len(parts) <= 2:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		s.writeError(w, http.StatusNotFound, "Invalid path")
	}
}

func (s *Server) getRelay(w http.ResponseWriter, a model.Actuator) {
	st, err := s.control.State(a)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RelayResponse{Device: string(a), State: string(st)})
}

func (s *Server) setRelay(w http.ResponseWriter, r *http.Request, a model.Actuator) {
	var req RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	st, err := model.ParseSwitchState(req.State)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.control.Switch(a, st); err != nil {
		s.writeFault(w, err)
		return
	}

	log.Info().Str("device", string(a)).Str("state", string(st)).Msg("Relay switched via API")
	s.writeJSON(w, http.StatusOK, RelayResponse{Device: string(a), State: string(st)})
}

func (s *Server) toggleRelay(w http.ResponseWriter, a model.Actuator) {
	st, err := s.control.Toggle(a)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	log.Info().Str("device", string(a)).Str("state", string(st)).Msg("Relay toggled via API")
	s.writeJSON(w, http.StatusOK, RelayResponse{Device: string(a), State: string(st)})
}

// handleLegacySwitch serves GET /switch/{device}/{state} for existing
// bookmarks and scripts.
func (s *Server) handleLegacySwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/switch/"), "/")
	if len(parts) != 2 {
		s.writeError(w, http.StatusNotFound, "Expected /switch/{device}/{state}")
		return
	}
	a, err := model.ParseActuator(parts[0])
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	st, err := model.ParseSwitchState(parts[1])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.control.Switch(a, st); err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RelayResponse{Device: string(a), State: string(st)})
}

func (s *Server) handleWater(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req WaterRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
	}
	if req.Grams < 0 {
		s.writeError(w, http.StatusBadRequest, "grams must not be negative")
		return
	}

	rec, err := s.control.Water(req.Grams)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if err := s.control.CaptureImage(r.Context()); err != nil {
			s.writeFault(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		path := s.control.ImagePath()
		if _, err := os.Stat(path); err != nil {
			s.writeError(w, http.StatusNotFound, "No image captured yet")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	readings, err := s.control.Readings()
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	n, err := limitParam(r, 10)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.control.History(n)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDataLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	n, err := limitParam(r, 100)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.control.DataRecords(n)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// limitParam reads ?n=. A negative value means no limit.
func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("n must be an integer")
	}
	return n, nil
}

// statusFor maps an error's fault kind onto an HTTP status.
func statusFor(err error) int {
	switch fault.KindOf(err) {
	case fault.KindPolicy:
		return http.StatusConflict
	case fault.KindLock:
		return http.StatusServiceUnavailable
	case fault.KindConfiguration:
		return http.StatusUnprocessableEntity
	case fault.KindProtocol, fault.KindHardware:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFault(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("API request failed")
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(fault.KindOf(err))})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
