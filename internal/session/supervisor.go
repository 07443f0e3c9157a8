package session

import (
	"sync"
	"time"

	"mwtunnel/internal/logger"
)

// tick is the supervisor's reconnect-check period; there is no back-off
// beyond this fixed interval.
const tick = 3 * time.Second

// Supervisor keeps exactly one live Session for a given remote address and
// password, rebuilding it whenever the previous one dies. Readers snapshot
// Current() under the lock and then operate on the returned Session without
// holding it.
type Supervisor struct {
	addr     string
	password string
	log      *logger.Logger

	mu      sync.Mutex // session_mu
	current *Session

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSupervisor builds a Supervisor targeting addr with password, not yet
// running — call Run in its own goroutine to start the reconnect loop.
func NewSupervisor(addr, password string) *Supervisor {
	return &Supervisor{
		addr:     addr,
		password: password,
		log:      logger.Named("Supervisor"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run loops every 3s, dialing a fresh Session whenever none is current or
// the current one has died. Returns when Stop is called.
func (sv *Supervisor) Run() {
	defer close(sv.done)

	sv.maybeReconnect()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-sv.stop:
			return
		case <-ticker.C:
			sv.maybeReconnect()
		}
	}
}

func (sv *Supervisor) maybeReconnect() {
	sv.mu.Lock()
	dead := sv.current == nil || sv.current.IsClosed()
	stale := sv.current
	if dead {
		sv.current = nil
	}
	sv.mu.Unlock()

	if !dead {
		return
	}
	if stale != nil {
		stale.Close()
	}

	s, err := Dial(sv.addr, sv.password)
	if err != nil {
		sv.log.Warn("dial/handshake failed: %v", err)
		return
	}

	sv.mu.Lock()
	sv.current = s
	sv.mu.Unlock()
	sv.log.Info("session established to %s", sv.addr)
}

// Current snapshots the live session, or nil if none is up yet.
func (sv *Supervisor) Current() *Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.current
}

// Stop ends the reconnect loop and tears down the current session, if any.
// Safe to call more than once.
func (sv *Supervisor) Stop() {
	sv.stopOnce.Do(func() {
		close(sv.stop)
	})
	<-sv.done

	sv.mu.Lock()
	s := sv.current
	sv.current = nil
	sv.mu.Unlock()

	if s != nil {
		s.Close()
	}
}
