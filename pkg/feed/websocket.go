// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/accelstat/pkg/distributor"
	"github.com/Thermoquad/accelstat/pkg/source"
)

// Server defaults
const (
	DefaultClientBuffer = 64
	DefaultWriteTimeout = 5 * time.Second
)

// Status is the body of GET /api/status
type Status struct {
	Source      string `json:"source"`
	Running     bool   `json:"running"`
	Published   uint64 `json:"published"`
	Subscribers int    `json:"subscribers"`
	Clients     int    `json:"clients"`
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets the logger
func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPortDetails replaces the port enumeration behind GET /api/ports
func WithPortDetails(list func() ([]source.PortDetails, error)) ServerOption {
	return func(s *Server) {
		s.ports = list
	}
}

// WithClientBuffer sets the per-client sample buffer. Samples arriving while
// it is full are dropped for that client.
func WithClientBuffer(n int) ServerOption {
	return func(s *Server) {
		s.buffer = n
	}
}

// Server streams distributed samples to WebSocket clients
type Server struct {
	dist     *distributor.Distributor
	logger   zerolog.Logger
	ports    func() ([]source.PortDetails, error)
	buffer   int
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

// NewServer creates a server fed by d
func NewServer(d *distributor.Distributor, opts ...ServerOption) *Server {
	s := &Server{
		dist:   d,
		logger: zerolog.Nop(),
		ports:  source.ListPortDetails,
		buffer: DefaultClientBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/ports", s.handlePorts)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("feed server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Status reports the source and subscriber counts
func (s *Server) Status() Status {
	return Status{
		Source:      s.dist.Kind().String(),
		Running:     s.dist.IsRunning(),
		Published:   s.dist.Published(),
		Subscribers: s.dist.Len(),
		Clients:     int(s.clients.Load()),
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	enc, err := ParseEncoding(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, samples := s.dist.SubscribeChan(s.buffer)
	defer func() { _ = s.dist.Unsubscribe(id) }()
	s.clients.Add(1)
	defer s.clients.Add(-1)

	log := s.logger.With().Str("client", id).Str("remote", r.RemoteAddr).Stringer("format", enc).Logger()
	log.Info().Msg("client connected")
	defer log.Info().Msg("client disconnected")

	// Incoming messages are ignored; reading surfaces the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	messageType := websocket.TextMessage
	if enc == EncodingCBOR {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case <-closed:
			return
		case sample, ok := <-samples:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(time.Second))
				return
			}
			data, err := Marshal(enc, NewMessage(sample, time.Now()))
			if err != nil {
				log.Error().Err(err).Msg("encode failed")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			if err := conn.WriteMessage(messageType, data); err != nil {
				log.Debug().Err(err).Msg("write failed")
				return
			}
		}
	}
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.ports()
	if err != nil {
		s.logger.Warn().Err(err).Msg("port enumeration failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ports == nil {
		ports = []source.PortDetails{}
	}
	writeJSON(w, ports)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Status())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
