// SPDX-License-Identifier: MIT

// Package api provides the HTTP status surface of videowalld: health and
// readiness probes, a status endpoint, the event journal and Prometheus
// metrics. Playback is never controlled over HTTP; that is what the
// multicast channel is for.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ManuGH/videowall/internal/health"
	"github.com/ManuGH/videowall/internal/history"
	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/player"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StateSource is the read-only slice of the playback state machine the API
// exposes.
type StateSource interface {
	State() player.State
}

// EventSource serves journal queries; nil when the journal is disabled.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]history.Event, error)
}

// Server assembles the HTTP handler.
type Server struct {
	state     StateSource
	events    EventSource
	health    *health.Manager
	videoPath string
	version   string
	startTime time.Time
	logger    zerolog.Logger
}

// NewServer creates the API server. events may be nil.
func NewServer(state StateSource, events EventSource, hm *health.Manager, videoPath, version string) *Server {
	return &Server{
		state:     state,
		events:    events,
		health:    hm,
		videoPath: videoPath,
		version:   version,
		startTime: time.Now(),
		logger:    log.WithComponent("api"),
	}
}

// Router builds the chi router with logging and rate limiting middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Health(r.Context())
	status := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, resp := s.health.Ready(r.Context())
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type statusResponse struct {
	State         string    `json:"state"`
	Version       string    `json:"version"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Video         videoInfo `json:"video"`
}

type videoInfo struct {
	Path    string     `json:"path"`
	Present bool       `json:"present"`
	Bytes   int64      `json:"bytes,omitempty"`
	ModTime *time.Time `json:"mod_time,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State:         s.state.State().String(),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Video:         videoInfo{Path: s.videoPath},
	}
	if info, err := os.Stat(s.videoPath); err == nil {
		mod := info.ModTime()
		resp.Video.Present = true
		resp.Video.Bytes = info.Size()
		resp.Video.ModTime = &mod
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSONError(w, http.StatusNotFound, "event journal disabled")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query events")
		writeJSONError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
