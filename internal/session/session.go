// Package session wires a handshake, an obfuscated frame channel, and a
// yamux multiplexer together into one live Session, and supervises
// reconnects when it dies.
package session

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/yamux"

	"mwtunnel/internal/frame"
	"mwtunnel/internal/handshake"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/noise"
	"mwtunnel/internal/stats"
)

// Mux tuning, per the wire-compatibility contract: 30s keep-alive, 15s
// connection write timeout, 30s stream-open timeout. yamux has a single
// stream-window-size knob; we use the larger of the spec's initial/max
// pair (512 KiB) since initial and max cannot be expressed separately.
func muxConfig() *yamux.Config {
	c := yamux.DefaultConfig()
	c.EnableKeepAlive = true
	c.KeepAliveInterval = 30 * time.Second
	c.ConnectionWriteTimeout = 15 * time.Second
	c.StreamOpenTimeout = 30 * time.Second
	c.MaxStreamWindowSize = 512 * 1024
	c.LogOutput = io.Discard
	return c
}

// Session owns one live masquerade connection: its frame channel, its
// background noise generator, and the yamux client multiplexed on top.
type Session struct {
	channel   *frame.Channel
	mux       *yamux.Session
	stopNoise chan struct{}
}

// Dial performs the handshake against addr, builds the frame channel and
// noise generator, and starts a yamux client on top. Any failure tears
// down whatever was partially constructed.
func Dial(addr, password string) (*Session, error) {
	res, err := handshake.Dial(addr, password)
	if err != nil {
		stats.Global().DialFailed()
		return nil, fmt.Errorf("session: handshake: %w", err)
	}

	ch, err := frame.New(res.Conn, res.Key)
	if err != nil {
		res.Conn.Close()
		stats.Global().DialFailed()
		return nil, fmt.Errorf("session: build frame channel: %w", err)
	}
	ch.Start()

	mux, err := yamux.Client(ch, muxConfig())
	if err != nil {
		ch.Close()
		stats.Global().DialFailed()
		return nil, fmt.Errorf("session: start multiplexer: %w", err)
	}

	stopNoise := make(chan struct{})
	go noise.Run(ch, stopNoise)

	stats.Global().SessionStarted()
	return &Session{channel: ch, mux: mux, stopNoise: stopNoise}, nil
}

// IsClosed reports whether the multiplexer (and therefore the session)
// has died.
func (s *Session) IsClosed() bool {
	return s.mux.IsClosed()
}

// OpenStream opens a new multiplexed stream for one proxy request.
func (s *Session) OpenStream() (net.Conn, error) {
	stream, err := s.mux.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("session: open stream: %w", err)
	}
	stats.Global().StreamOpened()
	return &trackedStream{Stream: stream}, nil
}

// Close tears the session down: stops the noise generator, closes the
// multiplexer, and closes the frame channel (and its socket).
func (s *Session) Close() {
	close(s.stopNoise)
	s.mux.Close()
	s.channel.Close()
	stats.Global().SessionEnded()
}

// trackedStream wraps a yamux stream so closing it also decrements the
// active-stream counter exactly once.
type trackedStream struct {
	*yamux.Stream
	closeOnce sync.Once
}

func (t *trackedStream) Close() error {
	err := t.Stream.Close()
	t.closeOnce.Do(func() { stats.Global().StreamClosed() })
	return err
}
