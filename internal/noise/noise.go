// Package noise emits plausible player-position traffic on an otherwise
// idle masquerade connection so the session doesn't go conspicuously
// silent between application bursts.
package noise

import (
	"time"

	"mwtunnel/internal/frame"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/mcproto"
	"mwtunnel/internal/stats"
)

const (
	interval = time.Second
	baseX    = 100.5
	baseY    = 64.0
	baseZ    = 100.5
)

// Run emits a Player Position packet on ch once per second until stop is
// closed or a write fails. Intended to run in its own goroutine, one per
// session.
func Run(ch *frame.Channel, stop <-chan struct{}) {
	log := logger.Named("Noise")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			jitter := float64(time.Now().UnixNano()%100) / 5000.0
			body := mcproto.EncodePlayerPosition(baseX+jitter, baseY, baseZ+jitter, true)
			if err := ch.WriteRawPacket(mcproto.PlayerPositionID, body); err != nil {
				log.Debug("player position write failed: %v", err)
				return
			}
			stats.Global().NoiseSent()
		}
	}
}
