// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// IMUOptions selects the MPU9250 wiring and ranges.
type IMUOptions struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	GyroRange  byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
}

// gyroCountsPerDPS is the MPU9250 gyro sensitivity at ±250°/s.
const gyroCountsPerDPS = 131.0

type imuSource struct {
	imu       *mpu9250.MPU9250
	gyroScale float64 // counts per °/s at the configured range

	yaw      float64
	lastRead time.Time
	errCount uint64
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source
// reporting pitch/roll from accelerometer tilt and yaw from the
// integrated Z gyro. Translation is always 0.
func NewIMUSource(opts IMUOptions) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("imu: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("imu: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("imu: set gyro range: %w", err)
	}
	log.Printf("imu: ranges accel=%d gyro=%d", opts.AccelRange, opts.GyroRange)

	// Calibration is best effort; an uncalibrated IMU still tracks.
	if err := dev.Calibrate(); err != nil {
		log.Printf("imu: WARNING: calibration failed: %v", err)
	} else {
		log.Println("imu: calibration complete")
	}

	return &imuSource{
		imu:       dev,
		gyroScale: gyroCountsPerDPS / float64(int(1)<<opts.GyroRange),
	}, nil
}

func (s *imuSource) Poll() (Pose, bool) {
	ax, ay, az, gz, err := s.read()
	if err != nil {
		s.errCount++
		if s.errCount%100 == 1 {
			log.Printf("imu: read error: %v (total errors: %d)", err, s.errCount)
		}
		return Pose{}, false
	}

	now := time.Now()
	if !s.lastRead.IsZero() {
		s.yaw = integrateYaw(s.yaw, float64(gz)/s.gyroScale, now.Sub(s.lastRead).Seconds())
	}
	s.lastRead = now

	p := ComputePoseFromAccel(float64(ax), float64(ay), float64(az))
	p[Yaw] = s.yaw
	return p, true
}

func (s *imuSource) read() (ax, ay, az, gz int16, err error) {
	if ax, err = s.imu.GetAccelerationX(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("accel X: %w", err)
	}
	if ay, err = s.imu.GetAccelerationY(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("accel Y: %w", err)
	}
	if az, err = s.imu.GetAccelerationZ(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("accel Z: %w", err)
	}
	if gz, err = s.imu.GetRotationZ(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("gyro Z: %w", err)
	}
	return ax, ay, az, gz, nil
}

// integrateYaw advances yaw by rate*dt and wraps it into [-180, 180).
func integrateYaw(yaw, rateDPS, dt float64) float64 {
	yaw += rateDPS * dt
	for yaw >= 180 {
		yaw -= 360
	}
	for yaw < -180 {
		yaw += 360
	}
	return yaw
}
