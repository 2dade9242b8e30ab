// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"net"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// PacketSize is the UDP datagram size: six little-endian float64 values
// in axis order x, y, z, yaw, pitch, roll.
const PacketSize = orientation.NumAxes * 8

// UDP sends each pose as one datagram to a fixed address.
type UDP struct {
	conn net.Conn
	buf  []byte

	errCount uint64
}

// NewUDP dials addr ("host:port").
func NewUDP(addr string) (*UDP, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %s: %w", addr, err)
	}
	log.Printf("protocol: UDP sink sending to %s", addr)
	return &UDP{conn: conn, buf: make([]byte, 0, PacketSize)}, nil
}

// AppendPose appends the wire encoding of p to b.
func AppendPose(b []byte, p orientation.Pose) []byte {
	for _, v := range p {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}

// DecodePose reads a pose written by AppendPose.
func DecodePose(b []byte) (orientation.Pose, error) {
	var p orientation.Pose
	if len(b) < PacketSize {
		return p, fmt.Errorf("udp: short packet: %d bytes", len(b))
	}
	for i := range p {
		p[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return p, nil
}

// Send is called from a single goroutine.
func (u *UDP) Send(p orientation.Pose) {
	u.buf = AppendPose(u.buf[:0], p)
	if _, err := u.conn.Write(u.buf); err != nil {
		u.errCount++
		if logEvery(u.errCount) {
			log.Printf("protocol: UDP write error: %v (total errors: %d)", err, u.errCount)
		}
	}
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
