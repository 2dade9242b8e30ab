// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Millisecond, cfg.Period())
	assert.Equal(t, 250*time.Millisecond, cfg.SourceStale())
	assert.True(t, cfg.TrackerEnabled)
	assert.True(t, cfg.TrackerCompensate)
	assert.Equal(t, SourceMock, cfg.PrimarySource)
	assert.Equal(t, SourceNone, cfg.SecondarySource)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	assert.Empty(t, cfg.Protocols)
}

func TestParseValues(t *testing.T) {
	in := `
# tracker
TRACKER_PERIOD_MS = 10
TRACKER_ENABLED=false
PRIMARY_SOURCE=MQTT
SECONDARY_SOURCE=serial
FILTER=kalman
FILTER_KALMAN_Q=0.02
PROTOCOLS=udp, mqtt ,
UDP_ADDR=192.168.1.20:4242
IMU_GYRO_RANGE=2
DISPLAY_I2C_ADDR=0x3D
RECORD_ENABLED=true
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Period())
	assert.False(t, cfg.TrackerEnabled)
	assert.Equal(t, SourceMQTT, cfg.PrimarySource)
	assert.Equal(t, SourceSerial, cfg.SecondarySource)
	assert.True(t, cfg.UsesSource(SourceSerial))
	assert.False(t, cfg.UsesSource(SourceIMU))
	assert.Equal(t, "kalman", cfg.Filter)
	assert.InDelta(t, 0.02, cfg.FilterKalmanQ, 1e-12)
	assert.Equal(t, []string{"udp", "mqtt"}, cfg.Protocols)
	assert.True(t, cfg.UsesProtocol(ProtocolMQTT))
	assert.Equal(t, "192.168.1.20:4242", cfg.UDPAddr)
	assert.Equal(t, byte(2), cfg.IMUGyroRange)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)
	assert.True(t, cfg.RecordEnabled)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing equals", "\nTRACKER_PERIOD_MS 10", "invalid config line 2"},
		{"unknown key", "NOPE=1", `config line 1: unknown config key: "NOPE"`},
		{"bad int", "TRACKER_PERIOD_MS=fast", "invalid TRACKER_PERIOD_MS"},
		{"out of range", "IMU_ACCEL_RANGE=4", "IMU_ACCEL_RANGE must be 0-3"},
		{"bad bool", "TRACKER_ENABLED=maybe", "invalid TRACKER_ENABLED"},
		{"bad source", "PRIMARY_SOURCE=webcam", "PRIMARY_SOURCE"},
		{"same source twice", "PRIMARY_SOURCE=imu\nSECONDARY_SOURCE=imu", "both"},
		{"replay without session", "PRIMARY_SOURCE=replay", "REPLAY_SESSION"},
		{"bad filter", "FILTER=median", "FILTER"},
		{"bad smoothing", "FILTER_EWMA_SMOOTHING=1", "FILTER_EWMA_SMOOTHING"},
		{"bad protocol", "PROTOCOLS=udp,freetrack", "freetrack"},
		{"mqtt without broker", "MQTT_BROKER=\nPROTOCOLS=mqtt", "MQTT_BROKER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headtrack_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("WEB_SERVER_PORT=9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.WebServerPort)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 9090, Get().WebServerPort)
}
