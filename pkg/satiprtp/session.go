package satiprtp

import (
	"net"
	"sync"
	"sync/atomic"
)

const (
	tsPacketLen  = 188
	rtpHeaderLen = 12
	batchSlots   = 128
	slotCapacity = 7*tsPacketLen + rtpHeaderLen // 1328
)

// slot is one scatter-gather buffer in a session's send batch: an RTP
// header followed by zero or more TS packets, never crossing slotCapacity.
type slot struct {
	buf [slotCapacity]byte
	n   int
}

// batch is the fixed-capacity send buffer for one session. cursor names
// the slot currently being filled; every slot with index < cursor is full.
type batch struct {
	slots  [batchSlots]slot
	cursor int
}

// Session is one live RTP/RTCP stream to a client, fed by an input
// streaming queue and flushed in batches over a pair of UDP sockets.
type Session struct {
	Handle any // opaque handle supplied by the control layer

	RTPPeer  *net.UDPAddr
	RTCPPeer *net.UDPAddr

	RTPSocket  *net.UDPConn
	RTCPSocket *net.UDPConn

	Mux      MuxConfig
	Frontend int
	Source   int

	BytesOut *Counter // subscription byte accounting, atomically updatable

	mu     sync.Mutex // protects pids and signal below
	pids   PIDFilter
	signal SignalStatus

	batch batch
	seq   uint16

	queuePtr atomic.Pointer[Queue] // non-owning; nulled by CloseSession to signal shutdown
	done     chan struct{}

	sender  batchSender
	metrics *metricsSet // nil when Core was created with MetricsEnabled=false
}

// queue loads the session's current queue reference. Safe for concurrent
// use by the streamer goroutine, the RTCP reporter and Core.CloseSession.
func (s *Session) queue() *Queue {
	return s.queuePtr.Load()
}

// batchSender is the vectored UDP send primitive a session flushes
// through. Implemented by pkg/satiprtp/batchsend.
type batchSender interface {
	Send(iovecs [][]byte) (int, error)
}

// Counter is a tiny atomically-updatable byte counter, standing in for
// the subscription object's bytes_out field (an external collaborator in
// the full server; modeled here so the streamer has something to add to).
type Counter struct {
	mu sync.Mutex
	n  uint64
}

func (c *Counter) Add(delta uint64) {
	c.mu.Lock()
	c.n += delta
	c.mu.Unlock()
}

func (c *Counter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// PIDs returns a copy of the session's current PID filter.
func (s *Session) PIDs() PIDFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.pids
	f.PIDs = append([]uint16(nil), s.pids.PIDs...)
	return f
}

// setPIDs replaces the session's PID filter under the session mutex.
func (s *Session) setPIDs(f PIDFilter) {
	s.mu.Lock()
	s.pids = f
	s.mu.Unlock()
}

// SignalStatus returns a copy of the session's most recently cached
// signal reading.
func (s *Session) SignalStatus() SignalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signal
}

func (s *Session) setSignalStatus(sig SignalStatus) {
	s.mu.Lock()
	s.signal = sig
	s.mu.Unlock()
}

// writeRTPHeader stamps a fresh RTP header into slot k, incrementing the
// session's sequence number first and writing the new value, per spec:
// version 2, no padding/ext/CSRC,
// payload type 33 (MP2T), timestamp = dispatchClock + sequence, SSRC
// filler 0xA5A5A5A5.
func (s *Session) writeRTPHeader(k int) {
	sl := &s.batch.slots[k]
	s.seq++
	ts := dispatchClock() + uint32(s.seq)

	b := sl.buf[:rtpHeaderLen]
	b[0] = 0x80
	b[1] = 33
	b[2] = byte(s.seq >> 8)
	b[3] = byte(s.seq)
	b[4] = byte(ts >> 24)
	b[5] = byte(ts >> 16)
	b[6] = byte(ts >> 8)
	b[7] = byte(ts)
	b[8], b[9], b[10], b[11] = 0xa5, 0xa5, 0xa5, 0xa5
	sl.n = rtpHeaderLen
}
