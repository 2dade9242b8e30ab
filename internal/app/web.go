// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/tracker"
)

// Controller is the part of the tracker the UIs read and drive.
type Controller interface {
	RequestCenter()
	SetEnabled(enabled bool)
	SetCompensation(enabled bool)
	SetAxisInvert(axis orientation.Axis, invert bool) error
	Axes() curve.Axes
	Snapshot() tracker.Snapshot
}

var _ Controller = (*tracker.Tracker)(nil)

// AxisView is one axis as shown to UIs.
type AxisView struct {
	Name string `json:"name"`
	curve.Axis
}

// Snapshot is what the pose endpoint and the websocket push.
type Snapshot struct {
	Measured     orientation.Pose `json:"measured"`
	Output       orientation.Pose `json:"output"`
	Enabled      bool             `json:"enabled"`
	Compensation bool             `json:"compensation"`
	State        string           `json:"state"`
	Axes         []AxisView       `json:"axes"`
}

func axisViews(axes curve.Axes) []AxisView {
	out := make([]AxisView, len(axes))
	for i, a := range axes {
		out[i] = AxisView{Name: orientation.Axis(i).String(), Axis: a}
	}
	return out
}

func takeSnapshot(c Controller) Snapshot {
	snap := c.Snapshot()
	return Snapshot{
		Measured:     snap.Measured,
		Output:       snap.Output,
		Enabled:      snap.Enabled,
		Compensation: snap.Compensation,
		State:        snap.State.String(),
		Axes:         axisViews(snap.Axes),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type webServer struct {
	ctl         Controller
	push        time.Duration
	profilePath string
}

// NewWebHandler serves the JSON API and the /ws live stream.
// An empty profilePath disables POST /api/profile.
func NewWebHandler(ctl Controller, push time.Duration, profilePath string) http.Handler {
	if push <= 0 {
		push = 50 * time.Millisecond
	}
	s := &webServer{ctl: ctl, push: push, profilePath: profilePath}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pose", s.handlePose)
	mux.HandleFunc("GET /api/axes", s.handleAxes)
	mux.HandleFunc("POST /api/center", s.handleCenter)
	mux.HandleFunc("POST /api/enabled", s.handleEnabled)
	mux.HandleFunc("POST /api/compensation", s.handleCompensation)
	mux.HandleFunc("POST /api/axes/{axis}/invert", s.handleInvert)
	mux.HandleFunc("POST /api/profile", s.handleSaveProfile)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// RunWeb serves the API until ctx is done.
func RunWeb(ctx context.Context, ctl Controller, cfg *config.Config) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:     NewWebHandler(ctl, time.Duration(cfg.WebPushInterval)*time.Millisecond, cfg.ProfilePath),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: %w", err)
	}
	log.Println("web: server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func boolParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("value")
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("value must be true or false, got %q", v)
	}
	return b, nil
}

func (s *webServer) handlePose(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, takeSnapshot(s.ctl))
}

func (s *webServer) handleAxes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, axisViews(s.ctl.Axes()))
}

func (s *webServer) handleCenter(w http.ResponseWriter, _ *http.Request) {
	s.ctl.RequestCenter()
	w.WriteHeader(http.StatusNoContent)
}

func (s *webServer) handleEnabled(w http.ResponseWriter, r *http.Request) {
	v, err := boolParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.ctl.SetEnabled(v)
	writeJSON(w, takeSnapshot(s.ctl))
}

func (s *webServer) handleCompensation(w http.ResponseWriter, r *http.Request) {
	v, err := boolParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.ctl.SetCompensation(v)
	writeJSON(w, takeSnapshot(s.ctl))
}

func (s *webServer) handleInvert(w http.ResponseWriter, r *http.Request) {
	axis, err := orientation.ParseAxis(r.PathValue("axis"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := boolParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ctl.SetAxisInvert(axis, v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, axisViews(s.ctl.Axes()))
}

func (s *webServer) handleSaveProfile(w http.ResponseWriter, _ *http.Request) {
	if s.profilePath == "" {
		http.Error(w, "no profile path configured", http.StatusConflict)
		return
	}
	if err := curve.SaveProfile(s.profilePath, s.ctl.Axes()); err != nil {
		log.Printf("web: save profile: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("web: profile saved to %s", s.profilePath)
	w.WriteHeader(http.StatusNoContent)
}

// wsCommand is a control message sent by a websocket client.
type wsCommand struct {
	Action string `json:"action"` // center, enabled, compensation, invert
	Axis   string `json:"axis,omitempty"`
	Value  bool   `json:"value,omitempty"`
}

type wsError struct {
	Error string `json:"error"`
}

// handleWS pushes a Snapshot every push interval and applies commands
// read from the client.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		return conn.WriteJSON(v)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket read error: %v", err)
				}
				return
			}
			if err := s.apply(cmd); err != nil {
				write(wsError{Error: err.Error()})
			}
		}
	}()

	ticker := time.NewTicker(s.push)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
			if err := write(takeSnapshot(s.ctl)); err != nil {
				return
			}
		}
	}
}

func (s *webServer) apply(cmd wsCommand) error {
	switch cmd.Action {
	case "center":
		s.ctl.RequestCenter()
	case "enabled":
		s.ctl.SetEnabled(cmd.Value)
	case "compensation":
		s.ctl.SetCompensation(cmd.Value)
	case "invert":
		axis, err := orientation.ParseAxis(cmd.Axis)
		if err != nil {
			return err
		}
		return s.ctl.SetAxisInvert(axis, cmd.Value)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}
