package satiprtp

import (
	"errors"
	"fmt"
)

// Debug gates the "non-aligned TS payload" invariant check described by
// spec §7: when true, a payload whose length is not a multiple of 188
// bytes panics (a programming error upstream); when false the streamer
// instead treats it as a fatal send error and exits the session cleanly,
// so a misbehaving producer cannot take the whole process down in
// production.
var Debug = false

var errNonAlignedPayload = errors.New("satiprtp: TS payload length is not a multiple of 188")

// appendTS filters and packs one run of 188-byte TS packets into the
// session's batch, advancing to the next slot whenever a slot fills and
// flushing when the batch's last slot fills. Precondition: len(data)
// is a multiple of 188.
//
// lastPID is local to this call, reset to -1 on entry: the fast path it
// drives is only valid within one dequeued message's run of packets,
// matching satip_rtp_loop's own per-call local in the source this is
// grounded on. Keeping it on the Session instead would let a PID accepted
// in an earlier message keep bypassing f.Accept forever, even after a
// later UpdatePIDs removes it from the filter.
func (s *Session) appendTS(data []byte) error {
	if len(data)%tsPacketLen != 0 {
		if Debug {
			panic(errNonAlignedPayload)
		}
		return errNonAlignedPayload
	}

	f := s.PIDs()
	lastPID := int32(-1)
	for len(data) >= tsPacketLen {
		pkt := data[:tsPacketLen]
		data = data[tsPacketLen:]

		pid := (uint16(pkt[1]&0x1f) << 8) | uint16(pkt[2])
		accepted := int32(pid) == lastPID
		if !accepted {
			accepted = f.Accept(pid)
			if accepted {
				lastPID = int32(pid)
			}
		}
		if !accepted {
			if s.metrics != nil {
				s.metrics.pidsDropped.Inc()
			}
			continue
		}

		sl := &s.batch.slots[s.batch.cursor]
		copy(sl.buf[sl.n:sl.n+tsPacketLen], pkt)
		sl.n += tsPacketLen

		if sl.n == slotCapacity {
			if s.batch.cursor+1 == batchSlots {
				if err := s.flush(); err != nil {
					return err
				}
			} else {
				s.batch.cursor++
				s.writeRTPHeader(s.batch.cursor)
			}
		}
	}
	return nil
}

// flush sends any full slots of the batch in one vectored send, one
// datagram per slot, and
// rolls any partially-filled tail slot back into slot 0, per spec §4.2.
func (s *Session) flush() error {
	first := &s.batch.slots[0]
	if first.n != slotCapacity {
		return nil // no full packet exists yet
	}

	cursorSlot := &s.batch.slots[s.batch.cursor]
	var packets int
	var carryTail bool
	if cursorSlot.n == slotCapacity {
		packets = s.batch.cursor + 1
		carryTail = false
	} else {
		packets = s.batch.cursor
		carryTail = true
	}

	iovecs := make([][]byte, packets)
	for i := 0; i < packets; i++ {
		iovecs[i] = s.batch.slots[i].buf[:s.batch.slots[i].n]
	}
	sent, err := s.sender.Send(iovecs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.rtpSendErrors.Inc()
		}
		return fmt.Errorf("satiprtp: RTP send: %w", err)
	}
	if s.metrics != nil {
		s.metrics.rtpPacketsSent.Add(float64(sent))
		var bytes int
		for i := 0; i < sent; i++ {
			bytes += len(iovecs[i])
		}
		s.metrics.rtpBytesSent.Add(float64(bytes))
	}

	if carryTail {
		tail := s.batch.slots[s.batch.cursor]
		s.batch.slots[0].buf = tail.buf
		s.batch.slots[0].n = tail.n
	} else {
		s.batch.slots[0].n = 0
	}
	s.batch.cursor = 0
	if s.batch.slots[0].n == 0 {
		s.writeRTPHeader(0)
	}
	return nil
}

// runResult is passed by run() to its onDone callback (installed by
// Core.Open) so the exit log line can distinguish a remote-initiated stop
// from one forced by the control layer.
type runResult struct {
	remoteInitiated bool
	err             error
}

// run is the per-session streamer goroutine. It consumes q until the
// session's queue reference is nulled (local shutdown) or a
// No-start/Exit message arrives (remote-initiated shutdown), filtering
// and packing MPEG-TS payloads and flushing the batch whenever the queue
// drains. On exit it closes s.done so Core.CloseSession can join it.
func (s *Session) run(onDone func(runResult)) {
	defer close(s.done)

	alive := true
	var fatalErr error

	q := s.queue()
	q.mu.Lock()
	for s.queue() != nil && fatalErr == nil {
		m, ok := q.lockedPop()
		if !ok {
			if err := s.flush(); err != nil {
				fatalErr = err
				continue
			}
			q.cond.Wait()
			continue
		}
		q.mu.Unlock()

		switch m.Kind {
		case MsgMPEGTS:
			if s.BytesOut != nil {
				s.BytesOut.Add(uint64(len(m.Payload)))
			}
			if err := s.appendTS(m.Payload); err != nil {
				fatalErr = err
			}
		case MsgSignalStatus:
			if m.Signal != nil {
				s.setSignalStatus(*m.Signal)
			}
		case MsgNoStart, MsgExit:
			alive = false
		case MsgStart, MsgStop, MsgPacket, MsgGrace, MsgSkip, MsgSpeed,
			MsgServiceStatus, MsgTimeshiftStatus:
			// ignored per spec
		}

		q.mu.Lock()
		if !alive {
			break
		}
	}
	q.mu.Unlock()

	if onDone != nil {
		onDone(runResult{remoteInitiated: !alive, err: fatalErr})
	}
}
