// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/orientation"
	"github.com/relabs-tech/headtracker/internal/tracker"
)

// fakeController records the calls made through the web API.
type fakeController struct {
	mu           sync.Mutex
	centers      int
	enabled      bool
	compensation bool
	axes         curve.Axes
	measured     orientation.Pose
	output       orientation.Pose
}

func newFakeController() *fakeController {
	return &fakeController{
		enabled:      true,
		compensation: true,
		measured:     orientation.Pose{1, 2, 3, 10, 20, 30},
		output:       orientation.Pose{0.5, 1, 1.5, 5, 10, 15},
	}
}

func (f *fakeController) RequestCenter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.centers++
}

func (f *fakeController) SetEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = v
}

func (f *fakeController) SetCompensation(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compensation = v
}

func (f *fakeController) SetAxisInvert(a orientation.Axis, v bool) error {
	if !a.Valid() {
		return tracker.ErrInvalidAxis
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.axes[a].Inverted = v
	return nil
}

func (f *fakeController) Axes() curve.Axes {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.axes
}

func (f *fakeController) Snapshot() tracker.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tracker.Snapshot{
		Measured:     f.measured,
		Output:       f.output,
		Axes:         f.axes,
		Enabled:      f.enabled,
		Compensation: f.compensation,
		State:        tracker.Running,
	}
}

func (f *fakeController) centerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.centers
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestWebPose(t *testing.T) {
	ctl := newFakeController()
	h := NewWebHandler(ctl, time.Millisecond, "")

	rec := do(t, h, http.MethodGet, "/api/pose")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, ctl.measured, snap.Measured)
	assert.Equal(t, ctl.output, snap.Output)
	assert.True(t, snap.Enabled)
	assert.Equal(t, "running", snap.State)
	require.Len(t, snap.Axes, orientation.NumAxes)
	assert.Equal(t, "yaw", snap.Axes[orientation.Yaw].Name)

	rec = do(t, h, http.MethodPost, "/api/pose")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebControls(t *testing.T) {
	ctl := newFakeController()
	h := NewWebHandler(ctl, time.Millisecond, "")

	rec := do(t, h, http.MethodPost, "/api/center")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, ctl.centerCount())

	rec = do(t, h, http.MethodPost, "/api/enabled?value=false")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ctl.Snapshot().Enabled)

	rec = do(t, h, http.MethodPost, "/api/compensation?value=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ctl.Snapshot().Compensation)

	rec = do(t, h, http.MethodPost, "/api/enabled?value=sometimes")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, ctl.Snapshot().Enabled)

	rec = do(t, h, http.MethodPost, "/api/axes/pitch/invert?value=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctl.Axes()[orientation.Pitch].Inverted)

	var views []AxisView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.True(t, views[orientation.Pitch].Inverted)

	rec = do(t, h, http.MethodPost, "/api/axes/heave/invert?value=true")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSaveProfile(t *testing.T) {
	ctl := newFakeController()
	require.NoError(t, ctl.SetAxisInvert(orientation.Roll, true))

	rec := do(t, NewWebHandler(ctl, 0, ""), http.MethodPost, "/api/profile")
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := filepath.Join(t.TempDir(), "axes.yaml")
	rec = do(t, NewWebHandler(ctl, 0, path), http.MethodPost, "/api/profile")
	require.Equal(t, http.StatusNoContent, rec.Code)

	axes, err := curve.LoadProfile(path)
	require.NoError(t, err)
	assert.True(t, axes[orientation.Roll].Inverted)
	assert.False(t, axes[orientation.Yaw].Inverted)
}

func TestWebSocket(t *testing.T) {
	ctl := newFakeController()
	srv := httptest.NewServer(NewWebHandler(ctl, 5*time.Millisecond, ""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, ctl.output, snap.Output)

	require.NoError(t, conn.WriteJSON(wsCommand{Action: "center"}))
	require.NoError(t, conn.WriteJSON(wsCommand{Action: "invert", Axis: "yaw", Value: true}))
	require.Eventually(t, func() bool {
		return ctl.centerCount() == 1 && ctl.Axes()[orientation.Yaw].Inverted
	}, 2*time.Second, 5*time.Millisecond)

	// an unknown action is answered with an error message
	require.NoError(t, conn.WriteJSON(wsCommand{Action: "recalibrate"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if strings.Contains(string(msg), `"error"`) {
			assert.Contains(t, string(msg), "recalibrate")
			break
		}
	}
}
