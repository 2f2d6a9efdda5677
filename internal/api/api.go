package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/utakatalp/league-simulator/internal/league"
	"github.com/utakatalp/league-simulator/internal/service"
)

const (
	defaultRuns = 1000
	maxRuns     = 10000
)

// LeagueService is what the HTTP layer needs from the league.
type LeagueService interface {
	DataJSON(ctx context.Context) ([]byte, error)
	Initialize(ctx context.Context) error
	SimulateAll(ctx context.Context) (int, error)
	SimulateNextWeek(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Odds(ctx context.Context, runs int) ([]league.Odds, error)
}

type Handler struct {
	svc    LeagueService
	logger *logrus.Logger
}

func NewHandler(svc LeagueService, logger *logrus.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Router wires the league routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestID, h.accessLog)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	l := r.PathPrefix("/league").Subrouter()
	l.HandleFunc("", h.index).Methods(http.MethodGet)
	l.HandleFunc("/simulate", h.simulate).Methods(http.MethodPost)
	l.HandleFunc("/simulate-next-week", h.simulateNextWeek).Methods(http.MethodPost)
	l.HandleFunc("/reset", h.reset).Methods(http.MethodPost)
	l.HandleFunc("/initialize", h.initialize).Methods(http.MethodPost)
	l.HandleFunc("/odds", h.odds).Methods(http.MethodGet)
	return r
}

type result struct {
	Success bool   `json:"success"`
	Week    int    `json:"week,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, result{Success: true})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.DataJSON(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.SimulateAll(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result{Success: true})
}

func (h *Handler) simulateNextWeek(w http.ResponseWriter, r *http.Request) {
	week, err := h.svc.SimulateNextWeek(r.Context())
	if errors.Is(err, service.ErrNoWeeksLeft) {
		h.writeJSON(w, http.StatusOK, result{Message: "No more weeks to simulate"})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result{Success: true, Week: week})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result{Success: true})
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Initialize(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result{Success: true})
}

func (h *Handler) odds(w http.ResponseWriter, r *http.Request) {
	runs := defaultRuns
	if v := r.URL.Query().Get("runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRuns {
			h.writeJSON(w, http.StatusBadRequest, result{Message: "runs must be between 1 and 10000"})
			return
		}
		runs = n
	}
	odds, err := h.svc.Odds(r.Context(), runs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, odds)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, league.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	h.logger.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": w.Header().Get(requestIDHeader),
	}).WithError(err).Error("request failed")
	h.writeJSON(w, status, result{Message: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("writing response")
	}
}

const requestIDHeader = "X-Request-ID"

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
			"request_id": w.Header().Get(requestIDHeader),
		}).Info("request")
	})
}
