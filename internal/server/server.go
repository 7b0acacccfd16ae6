// SPDX-License-Identifier: MIT
//
// Package server exposes the pipeline controls over HTTP. Every control
// route answers with JSON; /ws upgrades to the notification websocket.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/audio"
	applog "audiolink/internal/log"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Controller is the part of the pipeline the API drives.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect() error
	StartRecording() error
	StopRecording() (string, error)
	StartTuning(mode audio.TuningMode) error
	StopTuning()
	SetMinFrequency(hz float64) analysis.Range
	SetMaxFrequency(hz float64) analysis.Range
	ResetWindow() analysis.Range
	Snapshot() audio.Snapshot
}

// Server is the HTTP control API.
type Server struct {
	ctrl   Controller
	router *httprouter.Router
	srv    *http.Server
	log    zerolog.Logger
}

// New builds the routes. ws may be nil, in which case /ws is not served.
func New(addr string, ctrl Controller, ws http.Handler) *Server {
	s := &Server{
		ctrl:   ctrl,
		router: httprouter.New(),
		log:    applog.Component("server"),
	}

	s.router.POST("/connect", s.handleConnect)
	s.router.POST("/disconnect", s.handleDisconnect)
	s.router.POST("/recording/start", s.handleStartRecording)
	s.router.POST("/recording/stop", s.handleStopRecording)
	s.router.POST("/tuning/start", s.handleStartTuning)
	s.router.POST("/tuning/stop", s.handleStopTuning)
	s.router.PUT("/window", s.handleWindow)
	s.router.GET("/state", s.handleState)
	if ws != nil {
		s.router.Handler(http.MethodGet, "/ws", ws)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		s.router.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("control API listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// statusRecorder remembers the response code for the request log. Hijack
// is forwarded so websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Debugf("Server: writing response: %v", err)
	}
}

// writeError maps pipeline errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	var serr *audio.StreamError
	if errors.As(err, &serr) {
		body.Code = string(serr.Code)
		switch serr.Code {
		case audio.CodeTransportUnavailable:
			status = http.StatusServiceUnavailable
		case audio.CodeDeviceNotFound:
			status = http.StatusNotFound
		case audio.CodeConnectFailed:
			status = http.StatusBadGateway
		}
	} else if errors.Is(err, audio.ErrAlreadyConnected) {
		status = http.StatusConflict
	}
	writeJSON(w, status, body)
}
