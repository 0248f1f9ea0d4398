// Package viewer is the remote end of a device link: it accepts device
// WebSocket connections, keeps the latest preview frame and messages, and
// fans them out to browsers over MJPEG, WebSocket and a small JSON API.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/sirupsen/logrus"
)

// DefaultHistory is how many gesture events /api/gestures keeps.
const DefaultHistory = 50

// Config holds the viewer configuration.
type Config struct {
	// History bounds the recent gesture list. Zero means DefaultHistory.
	History int
	// StaticDir, when set, is served at the root.
	StaticDir string
	// Heartbeat is the WebSocket ping interval. Zero means DefaultHeartbeat.
	Heartbeat time.Duration
	// MaxConnections caps open WebSocket connections of either kind. Zero
	// means DefaultMaxConnections.
	MaxConnections int
}

// Server routes device and browser traffic.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
	log    logrus.FieldLogger

	stream  *mjpeg.Stream
	clients *hub
	state   *state
	active  atomic.Int64
}

// New creates a Server with its routes registered.
func New(config Config, log logrus.FieldLogger) *Server {
	if config.History <= 0 {
		config.History = DefaultHistory
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = DefaultHeartbeat
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	s := &Server{
		config:  config,
		router:  mux.NewRouter(),
		start:   time.Now(),
		log:     log,
		stream:  mjpeg.NewStream(),
		clients: newHub(log, config.Heartbeat),
		state:   newState(config.History),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/ws/device", s.handleDevice).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/client", s.handleClient).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/detections", s.handleDetections).Methods(http.MethodGet)
	api.HandleFunc("/gestures", s.handleGestures).Methods(http.MethodGet)
	api.Handle("/stream", s.stream).Methods(http.MethodGet)

	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("viewer listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.clients.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.start).String(),
		Devices: s.state.devices(),
		Clients: s.clients.count(),
		Frames:  s.state.frameCount(),
	})
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.state.latestDetection()
	if !ok {
		writeError(w, http.StatusNotFound, "no detections received")
		return
	}
	writeJSON(w, http.StatusOK, detectionResponse{
		Timestamp:   batch.TimestampMs,
		Detections:  batch.Detections,
		FrameWidth:  batch.FrameWidth,
		FrameHeight: batch.FrameHeight,
	})
}

func (s *Server) handleGestures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gesturesResponse{Gestures: s.state.recentGestures()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
