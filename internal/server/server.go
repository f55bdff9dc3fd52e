// Package server exposes the session coordinator over HTTP: a JSON
// REST surface for game operations, a WebSocket push channel per game,
// and Prometheus instruments.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jdstemmler/poker/internal/registry"
	"github.com/jdstemmler/poker/internal/session"
)

// Server is the HTTP surface over one coordinator.
type Server struct {
	cfg      *Config
	manager  *session.Manager
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *instruments
	upgrader websocket.Upgrader

	sendTimeout time.Duration
}

// New wires the HTTP surface. The registry may be shared with the
// coordinator so REST mutations fan out to connected sockets.
func New(cfg *Config, manager *session.Manager, reg *registry.Registry, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		manager:  manager,
		registry: reg,
		logger:   logger.With().Str("component", "http").Logger(),
		metrics:  newInstruments(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browsers reach the daemon from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendTimeout: time.Duration(cfg.Timers.ClientSendSeconds) * time.Second,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/games", s.instrument("create", s.handleCreate))
	mux.HandleFunc("POST /api/games/{code}/join", s.instrument("join", s.handleJoin))
	mux.HandleFunc("GET /api/games/{code}", s.instrument("lobby", s.handleLobby))
	mux.HandleFunc("GET /api/games/{code}/state/{pid}", s.instrument("state", s.handleState))
	mux.HandleFunc("POST /api/games/{code}/ready", s.instrument("ready", s.handleReady))
	mux.HandleFunc("POST /api/games/{code}/start", s.instrument("start", s.handleStart))
	mux.HandleFunc("POST /api/games/{code}/action", s.instrument("action", s.handleAction))
	mux.HandleFunc("POST /api/games/{code}/deal", s.instrument("deal", s.handleDeal))
	mux.HandleFunc("POST /api/games/{code}/rebuy", s.instrument("rebuy", s.handleRebuy))
	mux.HandleFunc("POST /api/games/{code}/rebuy/cancel", s.instrument("rebuy_cancel", s.handleCancelRebuy))
	mux.HandleFunc("POST /api/games/{code}/show-cards", s.instrument("show_cards", s.handleShowCards))
	mux.HandleFunc("POST /api/games/{code}/pause", s.instrument("pause", s.handlePause))
	mux.HandleFunc("POST /api/games/{code}/leave", s.instrument("leave", s.handleLeave))
	mux.HandleFunc("GET /api/games", s.instrument("list", s.handleList))
	mux.HandleFunc("GET /api/metrics/summary", s.instrument("metrics_summary", s.handleMetricsSummary))

	mux.HandleFunc("GET /ws/{code}/{pid}", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return mux
}

// instrument wraps a handler with request counting and latency.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run serves until ctx is canceled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
