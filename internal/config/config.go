// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source names accepted by PRIMARY_SOURCE and SECONDARY_SOURCE.
const (
	SourceNone   = "none"
	SourceMock   = "mock"
	SourceIMU    = "imu"
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
	SourceReplay = "replay"
)

// Protocol names accepted in PROTOCOLS.
const (
	ProtocolMQTT = "mqtt"
	ProtocolUDP  = "udp"
)

// Config holds all application configuration values.
type Config struct {
	// Tracker
	TrackerPeriodMS   int
	TrackerEnabled    bool
	TrackerCompensate bool
	PrimarySource     string
	SecondarySource   string
	SourceStaleMS     int

	// Filter
	Filter              string // none, ewma, kalman
	FilterEWMASmoothing float64
	FilterEWMAWarmUp    int
	FilterKalmanQ       float64
	FilterKalmanR       float64

	// Output sinks, in send order
	Protocols []string

	// MQTT
	MQTTBroker           string
	MQTTClientIDTracker  string
	MQTTClientIDConsole  string
	MQTTClientIDProducer string

	// Topics
	TopicPoseSource string
	TopicPoseOutput string

	// UDP
	UDPAddr string

	// Serial source
	SerialPort     string
	SerialBaudRate int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Web Server
	WebServerPort   int
	WebPushInterval int // milliseconds

	// Display
	DisplayEnabled        bool
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Persistence
	ProfilePath   string
	RecordDB      string
	RecordEnabled bool
	ReplaySession string
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal load at most once.
//   - configMu lets Get readers run concurrently.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns the configuration used for keys a file leaves out.
func Defaults() *Config {
	return &Config{
		TrackerPeriodMS:   15,
		TrackerEnabled:    true,
		TrackerCompensate: true,
		PrimarySource:     SourceMock,
		SecondarySource:   SourceNone,
		SourceStaleMS:     250,

		Filter:              "none",
		FilterEWMASmoothing: 0.6,
		FilterEWMAWarmUp:    2,
		FilterKalmanQ:       0.01,
		FilterKalmanR:       0.5,

		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDTracker:  "headtrack-tracker",
		MQTTClientIDConsole:  "headtrack-console",
		MQTTClientIDProducer: "headtrack-producer",

		TopicPoseSource: "headtrack/pose/source",
		TopicPoseOutput: "headtrack/pose/output",

		UDPAddr: "127.0.0.1:4242",

		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		WebServerPort:   8080,
		WebPushInterval: 50,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,

		ProfilePath: "axes.yaml",
		RecordDB:    "headtrack.db",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Defaults. Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Tracker
	case "TRACKER_PERIOD_MS":
		c.TrackerPeriodMS, err = parseInt(key, value, 1, 1000)
	case "TRACKER_ENABLED":
		c.TrackerEnabled, err = parseBool(key, value)
	case "TRACKER_COMPENSATE":
		c.TrackerCompensate, err = parseBool(key, value)
	case "PRIMARY_SOURCE":
		c.PrimarySource = strings.ToLower(value)
	case "SECONDARY_SOURCE":
		c.SecondarySource = strings.ToLower(value)
	case "SOURCE_STALE_MS":
		c.SourceStaleMS, err = parseInt(key, value, 1, 60000)

	// Filter
	case "FILTER":
		c.Filter = strings.ToLower(value)
	case "FILTER_EWMA_SMOOTHING":
		c.FilterEWMASmoothing, err = parseFloat(key, value)
	case "FILTER_EWMA_WARMUP":
		c.FilterEWMAWarmUp, err = parseInt(key, value, 0, 1000)
	case "FILTER_KALMAN_Q":
		c.FilterKalmanQ, err = parseFloat(key, value)
	case "FILTER_KALMAN_R":
		c.FilterKalmanR, err = parseFloat(key, value)

	// Protocols
	case "PROTOCOLS":
		c.Protocols = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				c.Protocols = append(c.Protocols, p)
			}
		}

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_POSE_SOURCE":
		c.TopicPoseSource = value
	case "TOPIC_POSE_OUTPUT":
		c.TopicPoseOutput = value

	// UDP
	case "UDP_ADDR":
		c.UDPAddr = value

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1, 4000000)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		var v int
		if v, err = parseInt(key, value, 0, 3); err == nil {
			c.IMUAccelRange = byte(v)
		}
	case "IMU_GYRO_RANGE":
		var v int
		if v, err = parseInt(key, value, 0, 3); err == nil {
			c.IMUGyroRange = byte(v)
		}

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "WEB_PUSH_INTERVAL":
		c.WebPushInterval, err = parseInt(key, value, 1, 60000)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 60000)

	// Persistence
	case "PROFILE_PATH":
		c.ProfilePath = value
	case "RECORD_DB":
		c.RecordDB = value
	case "RECORD_ENABLED":
		c.RecordEnabled, err = parseBool(key, value)
	case "REPLAY_SESSION":
		c.ReplaySession = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func validSource(name string) bool {
	switch name {
	case SourceNone, SourceMock, SourceIMU, SourceMQTT, SourceSerial, SourceReplay:
		return true
	}
	return false
}

// validate checks that the combination of values can be wired.
func (c *Config) validate() error {
	if !validSource(c.PrimarySource) {
		return fmt.Errorf("PRIMARY_SOURCE %q is not one of none, mock, imu, mqtt, serial, replay", c.PrimarySource)
	}
	if !validSource(c.SecondarySource) {
		return fmt.Errorf("SECONDARY_SOURCE %q is not one of none, mock, imu, mqtt, serial, replay", c.SecondarySource)
	}
	if c.PrimarySource != SourceNone && c.PrimarySource == c.SecondarySource {
		return fmt.Errorf("PRIMARY_SOURCE and SECONDARY_SOURCE are both %q", c.PrimarySource)
	}
	if c.UsesSource(SourceReplay) && c.ReplaySession == "" {
		return fmt.Errorf("REPLAY_SESSION is required for the replay source")
	}

	switch c.Filter {
	case "", "none", "ewma", "kalman":
	default:
		return fmt.Errorf("FILTER %q is not one of none, ewma, kalman", c.Filter)
	}
	if c.FilterEWMASmoothing < 0 || c.FilterEWMASmoothing >= 1 {
		return fmt.Errorf("FILTER_EWMA_SMOOTHING must be in [0, 1), got %g", c.FilterEWMASmoothing)
	}
	if c.FilterKalmanQ <= 0 || c.FilterKalmanR <= 0 {
		return fmt.Errorf("FILTER_KALMAN_Q and FILTER_KALMAN_R must be positive")
	}

	for _, p := range c.Protocols {
		if p != ProtocolMQTT && p != ProtocolUDP {
			return fmt.Errorf("PROTOCOLS: unknown protocol %q", p)
		}
	}

	if c.usesMQTT() && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.UsesSource(SourceSerial) && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	if c.UsesSource(SourceIMU) && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if c.RecordEnabled && c.RecordDB == "" {
		return fmt.Errorf("RECORD_DB is required when RECORD_ENABLED is set")
	}
	return nil
}

// UsesSource reports whether either source slot is name.
func (c *Config) UsesSource(name string) bool {
	return c.PrimarySource == name || c.SecondarySource == name
}

// UsesProtocol reports whether name is listed in PROTOCOLS.
func (c *Config) UsesProtocol(name string) bool {
	for _, p := range c.Protocols {
		if p == name {
			return true
		}
	}
	return false
}

func (c *Config) usesMQTT() bool {
	return c.UsesSource(SourceMQTT) || c.UsesProtocol(ProtocolMQTT)
}

// Period is the tracker tick period.
func (c *Config) Period() time.Duration {
	return time.Duration(c.TrackerPeriodMS) * time.Millisecond
}

// SourceStale is the freshness window of the mqtt and serial sources.
func (c *Config) SourceStale() time.Duration {
	return time.Duration(c.SourceStaleMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
