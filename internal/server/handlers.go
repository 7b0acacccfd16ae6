// SPDX-License-Identifier: MIT
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"audiolink/internal/analysis"
	"audiolink/internal/audio"

	"github.com/julienschmidt/httprouter"
)

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.ctrl.Connect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := s.ctrl.Disconnect(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStartRecording(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := s.ctrl.StartRecording(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

type recordingResponse struct {
	Path string `json:"path"`
}

func (s *Server) handleStopRecording(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	path, err := s.ctrl.StopRecording()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordingResponse{Path: path})
}

func (s *Server) handleStartTuning(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	mode, err := audio.ParseTuningMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.ctrl.StartTuning(mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStopTuning(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.ctrl.StopTuning()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// windowRequest moves one or both window edges. Reset is applied first.
type windowRequest struct {
	MinHz *float64 `json:"min_hz"`
	MaxHz *float64 `json:"max_hz"`
	Reset bool     `json:"reset"`
}

type windowResponse struct {
	Window   analysis.Range `json:"window"`
	MinHz    float64        `json:"min_hz"`
	MaxHz    float64        `json:"max_hz"`
	MinLabel string         `json:"min_label"`
	MaxLabel string         `json:"max_label"`
}

var errEmptyWindow = errors.New("window request sets neither min_hz, max_hz nor reset")

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req windowRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.MinHz == nil && req.MaxHz == nil && !req.Reset {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errEmptyWindow.Error()})
		return
	}
	span := s.ctrl.Snapshot().SpanHz
	for _, hz := range []*float64{req.MinHz, req.MaxHz} {
		switch {
		case hz == nil:
		case math.IsNaN(*hz) || *hz < 0:
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "frequencies cannot be negative"})
			return
		case *hz > span:
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("frequency %g Hz is above the spectrum (%g Hz)", *hz, span)})
			return
		}
	}

	if req.Reset {
		s.ctrl.ResetWindow()
	}
	if req.MinHz != nil {
		s.ctrl.SetMinFrequency(*req.MinHz)
	}
	if req.MaxHz != nil {
		s.ctrl.SetMaxFrequency(*req.MaxHz)
	}

	snap := s.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, windowResponse{
		Window:   snap.Window,
		MinHz:    snap.MinHz,
		MaxHz:    snap.MaxHz,
		MinLabel: snap.MinLabel,
		MaxLabel: snap.MaxLabel,
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}
