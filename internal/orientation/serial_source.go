// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialSource reads one pose per line from a serial head tracker
// (Arduino-style firmware printing "x y z yaw pitch roll").
type SerialSource struct {
	port io.ReadWriteCloser
	last *latest
	done chan struct{}
}

// NewSerialSource opens the port and starts a reader goroutine.
func NewSerialSource(portName string, baudRate uint, stale time.Duration) (*SerialSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial source: open %s: %w", portName, err)
	}
	log.Printf("serial source: opened %s at %d baud", portName, baudRate)

	return newSerialSource(port, stale), nil
}

func newSerialSource(port io.ReadWriteCloser, stale time.Duration) *SerialSource {
	s := &SerialSource{
		port: port,
		last: newLatest(stale),
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("serial source: read error: %v", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p, err := ParseLine(line)
		if err != nil {
			// partial lines are common right after the port opens
			continue
		}
		s.last.store(p)
	}
}

func (s *SerialSource) Poll() (Pose, bool) {
	return s.last.poll()
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}

// ParseLine parses six whitespace- or comma-separated floats in axis order.
func ParseLine(line string) (Pose, error) {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) != NumAxes {
		return Pose{}, fmt.Errorf("expected %d fields, got %d", NumAxes, len(fields))
	}

	var p Pose
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Pose{}, fmt.Errorf("field %d (%s): %w", i, Axis(i), err)
		}
		p[i] = v
	}
	return p, nil
}
