// Package engine is the Control Surface: the single start/stop/isActive/
// ping entry point that owns the session supervisor, the local proxy, and
// the split-tunnel rule set, and serializes every lifecycle transition.
package engine

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"mwtunnel/internal/httpproxy"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/session"
	"mwtunnel/internal/socksproxy"
	"mwtunnel/internal/splittunnel"
)

// ProxyType selects the local front-end start() spins up.
type ProxyType string

const (
	ProxySOCKS5 ProxyType = "socks5"
	ProxyHTTP   ProxyType = "http"
)

type state int

const (
	stateStopped state = iota
	stateStarting
	stateRunning
	stateStopping
)

func (s state) String() string {
	switch s {
	case stateStopped:
		return "Stopped"
	case stateStarting:
		return "Starting"
	case stateRunning:
		return "Running"
	case stateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// ErrAlreadyRunning is returned by Start when the engine is not Stopped.
var ErrAlreadyRunning = errors.New("engine: already running")

type proxyFrontend interface {
	Start() error
	Close() error
}

// Engine is the process-wide tunnel: exactly one instance, holding the
// Control State machine and everything it manages.
type Engine struct {
	log *logger.Logger

	mu    sync.Mutex // server_mu
	state state
	proxy proxyFrontend

	matcher *splittunnel.Matcher

	supervisor *session.Supervisor // also guarded by server_mu while referenced here
}

// New returns a fresh, Stopped Engine.
func New() *Engine {
	return &Engine{
		log:     logger.Named("Engine"),
		matcher: splittunnel.New(),
	}
}

// Start validates the request, transitions Stopped -> Starting -> Running,
// and spawns the session supervisor and the selected local proxy. Returns
// once the proxy listener is bound; the first dial happens asynchronously.
func (e *Engine) Start(localPort, server, password string, proxyType ProxyType) error {
	e.mu.Lock()
	if e.state != stateStopped {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.state = stateStarting

	// Defensive: tear down any residual session before building a new one.
	if e.supervisor != nil {
		stale := e.supervisor
		e.supervisor = nil
		e.mu.Unlock()
		stale.Stop()
		e.mu.Lock()
	}

	supervisor := session.NewSupervisor(server, password)
	listen := net.JoinHostPort("127.0.0.1", localPort)

	var proxy proxyFrontend
	switch proxyType {
	case ProxySOCKS5:
		proxy = socksproxy.New(listen, supervisor, e.matcher)
	case ProxyHTTP:
		proxy = httpproxy.New(listen, supervisor, e.matcher)
	default:
		e.state = stateStopped
		e.mu.Unlock()
		return fmt.Errorf("engine: unknown proxy type %q", proxyType)
	}

	if err := proxy.Start(); err != nil {
		e.state = stateStopped
		e.mu.Unlock()
		return fmt.Errorf("engine: listen failed: %w", err)
	}

	e.supervisor = supervisor
	e.proxy = proxy
	e.state = stateRunning
	e.mu.Unlock()

	go supervisor.Run()

	e.log.Info("started: local=%s server=%s proxy=%s", listen, server, proxyType)
	return nil
}

// Stop is a no-op if not Running. Captures and nils the proxy and
// supervisor references under the lock, releases it, then closes them —
// resource closes never run while server_mu is held, to avoid deadlocking
// against callbacks that re-enter the mutex.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != stateRunning {
		e.mu.Unlock()
		return
	}
	e.state = stateStopping
	proxy := e.proxy
	supervisor := e.supervisor
	e.proxy = nil
	e.supervisor = nil
	e.mu.Unlock()

	if proxy != nil {
		if err := proxy.Close(); err != nil {
			e.log.Warn("proxy close: %v", err)
		}
	}
	if supervisor != nil {
		supervisor.Stop()
	}

	e.mu.Lock()
	e.state = stateStopped
	e.mu.Unlock()
	e.log.Info("stopped")
}

// IsActive reports whether the Control State is Running.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

// Ping dials server with a 5s timeout and returns the elapsed milliseconds,
// or -1 on error. Does not interact with session state.
func (e *Engine) Ping(server string) int64 {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", server, 5*time.Second)
	if err != nil {
		return -1
	}
	elapsed := time.Since(start)
	conn.Close()
	return elapsed.Milliseconds()
}

// UpdateSplitRules delegates to the split-tunnel matcher; safe in any
// state.
func (e *Engine) UpdateSplitRules(paths []string) error {
	return e.matcher.UpdateRules(paths)
}
