package satiprtp

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// registry holds all active sessions, keyed by their control-layer
// handle, under one process-wide mutex. Lock order is always registry
// first, then (queue or session) — never the reverse.
type registry struct {
	mu       sync.Mutex
	sessions map[any]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[any]*Session)}
}

func (r *registry) insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Handle] = s
}

func (r *registry) lookup(handle any) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[handle]
	return s, ok
}

func (r *registry) remove(handle any) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[handle]
	if ok {
		delete(r.sessions, handle)
	}
	return s, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Range visits every session under the registry lock. visit must not
// call back into the registry; it returns false to stop early. The lock
// is held for the whole traversal, including anything visit does, such
// as the RTCP reporter's per-session send.
func (r *registry) Range(visit func(*Session) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if !visit(s) {
			return
		}
	}
}

// Core is the process-wide state of the streaming core: the session
// registry plus the shared RTCP reporter's lifecycle. Created by New,
// torn down by Shutdown, passed to (or held by) all entry points.
type Core struct {
	registry *registry
	metrics  *metricsSet

	cancelReporter context.CancelFunc
	reporterDone   chan struct{}
}

// Config tunes a Core; see internal/config for the process-wide default
// loader this mirrors.
type Config struct {
	// RTCPInterval overrides the reporter's ~150ms cadence; zero keeps
	// the default.
	RTCPInterval int // milliseconds, 0 = default
	// MetricsEnabled wires Prometheus counters/gauges when true.
	MetricsEnabled bool
}

// New creates the registry and starts the RTCP reporter (spec's init()).
func New(cfg Config) *Core {
	c := &Core{
		registry:     newRegistry(),
		reporterDone: make(chan struct{}),
	}
	if cfg.MetricsEnabled {
		c.metrics = newMetricsSet()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelReporter = cancel
	go c.runRTCPReporter(ctx, time.Duration(cfg.RTCPInterval)*time.Millisecond)

	return c
}

// Shutdown stops the RTCP reporter (spec's done()). The registry must
// already be empty; callers are expected to have closed every session
// first via CloseSession.
func (c *Core) Shutdown() {
	if n := c.registry.len(); n != 0 {
		panic(fmt.Sprintf("satiprtp: Shutdown called with %d session(s) still open", n))
	}
	c.cancelReporter()
	<-c.reporterDone
}

// OpenParams gathers the arguments spec §4.1's open() takes.
type OpenParams struct {
	Handle     any
	Queue      *Queue
	RTPPeer    *net.UDPAddr // port carries the RTP port; RTCP is port+1
	RTPSocket  *net.UDPConn
	RTCPSocket *net.UDPConn
	Frontend   int
	Source     int
	Mux        MuxConfig
	PIDs       PIDFilter
	BytesOut   *Counter
}

// Open registers and starts a new session. Allocation failure (a nil
// Queue or socket) makes Open return a nil session and an error rather
// than panicking; the control layer is expected to surface that to the
// client without ever having bound a handle (spec §7).
func (c *Core) Open(p OpenParams) (*Session, error) {
	if p.Queue == nil || p.RTPSocket == nil || p.RTCPSocket == nil || p.RTPPeer == nil {
		return nil, ErrIncompleteOpen
	}

	rtcpPeer := &net.UDPAddr{IP: p.RTPPeer.IP, Port: p.RTPPeer.Port + 1, Zone: p.RTPPeer.Zone}

	s := &Session{
		Handle:     p.Handle,
		RTPPeer:    p.RTPPeer,
		RTCPPeer:   rtcpPeer,
		RTPSocket:  p.RTPSocket,
		RTCPSocket: p.RTCPSocket,
		Mux:        p.Mux,
		Frontend:   p.Frontend,
		Source:     p.Source,
		BytesOut:   p.BytesOut,
		pids:       p.PIDs,
		done:       make(chan struct{}),
		metrics:    c.metrics,
	}
	s.queuePtr.Store(p.Queue)
	s.sender = newUDPBatchSender(p.RTPSocket)
	s.writeRTPHeader(0)

	c.registry.insert(s)

	go s.run(func(r runResult) {
		if r.err != nil {
			log.Printf("satiprtp: session %v: RTP streaming to %s closed (error: %v)", s.Handle, s.RTPPeer, r.err)
		} else if r.remoteInitiated {
			log.Printf("satiprtp: session %v: RTP streaming to %s closed (remote request)", s.Handle, s.RTPPeer)
		} else {
			log.Printf("satiprtp: session %v: RTP streaming to %s closed (streaming request)", s.Handle, s.RTPPeer)
		}
	})

	if c.metrics != nil {
		c.metrics.sessionsOpen.Inc()
		c.metrics.sessionsActive.Inc()
	}
	return s, nil
}

// UpdatePIDs replaces a session's PID filter, taking the registry lock to
// find the session and then the session lock to copy in the new list
// (lock order registry → session, per spec §4.1).
func (c *Core) UpdatePIDs(handle any, pids PIDFilter) error {
	s, ok := c.registry.lookup(handle)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoSession, handle)
	}
	s.setPIDs(pids)
	return nil
}

// CloseSession deregisters a session, stops its streamer and releases its
// resources: removes it from the registry, takes the queue mutex, nulls
// the session's queue pointer, broadcasts, releases both locks, then
// joins the streamer goroutine. No flush-on-close is performed; any
// partially-built batch is dropped (spec §5).
func (c *Core) CloseSession(handle any) error {
	s, ok := c.registry.remove(handle)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoSession, handle)
	}

	q := s.queue()
	q.mu.Lock()
	s.queuePtr.Store(nil)
	q.cond.Broadcast()
	q.mu.Unlock()

	<-s.done // join

	if c.metrics != nil {
		c.metrics.sessionsActive.Dec()
	}
	return nil
}
