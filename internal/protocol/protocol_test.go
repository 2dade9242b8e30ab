// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

type recordingSink struct {
	sent []orientation.Pose
}

func (r *recordingSink) Send(p orientation.Pose) { r.sent = append(r.sent, p) }

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := Fanout{a, b}
	p := orientation.Pose{1, 2, 3, 4, 5, 6}

	f.Send(p)
	f.Send(p)

	assert.Equal(t, []orientation.Pose{p, p}, a.sent)
	assert.Equal(t, []orientation.Pose{p, p}, b.sent)

	// empty fanout is a valid sink
	Fanout(nil).Send(p)
}

func TestAppendPoseLayout(t *testing.T) {
	p := orientation.Pose{1, -2, 0.5, 90, -45, 180}
	b := AppendPose(nil, p)
	require.Len(t, b, PacketSize)

	// 1.0 is 0x3FF0000000000000, little-endian puts the exponent last
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}, b[:8])

	got, err := DecodePose(b)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = DecodePose(b[:47])
	assert.Error(t, err)
}

func TestUDPSend(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	u, err := NewUDP(pc.LocalAddr().String())
	require.NoError(t, err)
	defer u.Close()

	p := orientation.Pose{10, 20, 30, 1.5, -2.5, 3.5}
	u.Send(p)

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 128)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, PacketSize, n)

	got, err := DecodePose(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestNewUDPBadAddr(t *testing.T) {
	_, err := NewUDP("not-an-address")
	assert.Error(t, err)
}

// fakeToken is a completed (or pending) mqtt.Token.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(completed bool, err error) *fakeToken {
	tok := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(tok.done)
	}
	return tok
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	mu        sync.Mutex
	topics    []string
	payloads  [][]byte
	qos       []byte
	retained  []bool
	nextToken mqtt.Token
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	f.qos = append(f.qos, qos)
	f.retained = append(f.retained, retained)
	if f.nextToken != nil {
		return f.nextToken
	}
	return newToken(true, nil)
}

func TestMQTTSend(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, "headtrack/pose/output")

	p := orientation.Pose{1, 2, 3, 10, 20, 30}
	m.Send(p)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "headtrack/pose/output", pub.topics[0])
	assert.Equal(t, byte(0), pub.qos[0])
	assert.False(t, pub.retained[0])

	var got orientation.Pose
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, p, got)
	assert.Zero(t, m.Errors())
}

func TestMQTTSendErrors(t *testing.T) {
	pub := &fakePublisher{nextToken: newToken(true, errors.New("not connected"))}
	m := NewMQTT(pub, "t")

	m.Send(orientation.Pose{})
	m.Send(orientation.Pose{})
	assert.Equal(t, uint64(2), m.Errors())

	// a pending token is not waited on
	pub.nextToken = newToken(false, nil)
	m.Send(orientation.Pose{})
	assert.Equal(t, uint64(2), m.Errors())
}
