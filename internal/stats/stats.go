// Package stats collects atomic counters for the tunnel engine: sessions,
// streams, traffic volume, and dropped-frame counts.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats is a process-wide set of atomic counters. Safe for concurrent use.
type Stats struct {
	TotalSessions  atomic.Uint64
	ActiveSessions atomic.Uint64
	FailedDials    atomic.Uint64

	TotalStreams  atomic.Uint64
	ActiveStreams atomic.Uint64
	ClosedStreams atomic.Uint64

	BytesSent     atomic.Uint64
	BytesReceived atomic.Uint64

	KeepAlivesEchoed  atomic.Uint64
	FramesDropped     atomic.Uint64 // CryptoOpenFailed / short payload
	FramesTooLarge    atomic.Uint64 // length-bound violations
	NoisePacketsSent  atomic.Uint64

	StartTime    time.Time
	lastActivity atomic.Value // time.Time
}

// New creates a fresh, zeroed Stats instance.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.lastActivity.Store(time.Now())
	return s
}

func (s *Stats) touch() { s.lastActivity.Store(time.Now()) }

func (s *Stats) SessionStarted() {
	s.TotalSessions.Add(1)
	s.ActiveSessions.Add(1)
	s.touch()
}

func (s *Stats) SessionEnded() {
	s.ActiveSessions.Add(^uint64(0))
}

func (s *Stats) DialFailed() { s.FailedDials.Add(1) }

func (s *Stats) StreamOpened() {
	s.TotalStreams.Add(1)
	s.ActiveStreams.Add(1)
	s.touch()
}

func (s *Stats) StreamClosed() {
	s.ActiveStreams.Add(^uint64(0))
	s.ClosedStreams.Add(1)
}

func (s *Stats) AddBytesSent(n uint64) {
	s.BytesSent.Add(n)
	s.touch()
}

func (s *Stats) AddBytesReceived(n uint64) {
	s.BytesReceived.Add(n)
	s.touch()
}

func (s *Stats) KeepAliveEchoed() { s.KeepAlivesEchoed.Add(1) }
func (s *Stats) FrameDropped()    { s.FramesDropped.Add(1) }
func (s *Stats) FrameTooLarge()   { s.FramesTooLarge.Add(1) }
func (s *Stats) NoiseSent()       { s.NoisePacketsSent.Add(1) }

// Snapshot is a point-in-time copy of the counters, safe to serialize.
type Snapshot struct {
	TotalSessions  uint64
	ActiveSessions uint64
	FailedDials    uint64

	TotalStreams  uint64
	ActiveStreams uint64
	ClosedStreams uint64

	BytesSent     uint64
	BytesReceived uint64

	KeepAlivesEchoed uint64
	FramesDropped    uint64
	FramesTooLarge   uint64
	NoisePacketsSent uint64

	Uptime       time.Duration
	LastActivity time.Time
}

func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		TotalSessions:  s.TotalSessions.Load(),
		ActiveSessions: s.ActiveSessions.Load(),
		FailedDials:    s.FailedDials.Load(),

		TotalStreams:  s.TotalStreams.Load(),
		ActiveStreams: s.ActiveStreams.Load(),
		ClosedStreams: s.ClosedStreams.Load(),

		BytesSent:     s.BytesSent.Load(),
		BytesReceived: s.BytesReceived.Load(),

		KeepAlivesEchoed: s.KeepAlivesEchoed.Load(),
		FramesDropped:    s.FramesDropped.Load(),
		FramesTooLarge:   s.FramesTooLarge.Load(),
		NoisePacketsSent: s.NoisePacketsSent.Load(),

		Uptime:       time.Since(s.StartTime),
		LastActivity: s.lastActivity.Load().(time.Time),
	}
}

var global = New()

// Global returns the process-wide Stats instance.
func Global() *Stats { return global }
