package satiprtp

import "testing"

// fakeSender records every Send call's iovec count so tests can assert on
// when (and how big) a flush actually triggers, without touching a socket.
type fakeSender struct {
	calls [][]int // lengths of the iovecs passed to each Send call
}

func (f *fakeSender) Send(iovecs [][]byte) (int, error) {
	lens := make([]int, len(iovecs))
	for i, b := range iovecs {
		lens[i] = len(b)
	}
	f.calls = append(f.calls, lens)
	return len(iovecs), nil
}

func newTestSession() (*Session, *fakeSender) {
	s := &Session{
		pids: NewPIDFilter(true, nil),
	}
	sender := &fakeSender{}
	s.sender = sender
	s.writeRTPHeader(0)
	return s, sender
}

// tsPacket builds a minimal 188-byte TS packet carrying pid in its header.
func tsPacket(pid uint16) []byte {
	pkt := make([]byte, tsPacketLen)
	pkt[0] = 0x47
	pkt[1] = byte(pid >> 8 & 0x1f)
	pkt[2] = byte(pid)
	return pkt
}

func TestAppendTSSinglePacketNoFlush(t *testing.T) {
	s, sender := newTestSession()
	if err := s.appendTS(tsPacket(256)); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no flush, got %d Send calls", len(sender.calls))
	}
	if s.batch.slots[0].n != rtpHeaderLen+tsPacketLen {
		t.Errorf("slot 0 length = %d, want %d", s.batch.slots[0].n, rtpHeaderLen+tsPacketLen)
	}
}

func TestAppendTSFullSlotAdvancesWithoutFlush(t *testing.T) {
	s, sender := newTestSession()
	var data []byte
	for i := 0; i < 7; i++ {
		data = append(data, tsPacket(256)...)
	}
	if err := s.appendTS(data); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no flush after filling one slot, got %d Send calls", len(sender.calls))
	}
	if s.batch.cursor != 1 {
		t.Errorf("cursor = %d, want 1", s.batch.cursor)
	}
	if s.batch.slots[0].n != slotCapacity {
		t.Errorf("slot 0 length = %d, want %d (full)", s.batch.slots[0].n, slotCapacity)
	}
}

func TestAppendTSFillsWholeBatchForcesSingleFlush(t *testing.T) {
	s, sender := newTestSession()
	var data []byte
	for i := 0; i < batchSlots*7; i++ {
		data = append(data, tsPacket(256)...)
	}
	if err := s.appendTS(data); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected exactly one flush, got %d", len(sender.calls))
	}
	if len(sender.calls[0]) != batchSlots {
		t.Errorf("flushed %d datagrams, want %d", len(sender.calls[0]), batchSlots)
	}
	for _, n := range sender.calls[0] {
		if n != slotCapacity {
			t.Errorf("flushed datagram length = %d, want %d", n, slotCapacity)
		}
	}
	if s.batch.cursor != 0 {
		t.Errorf("cursor after flush = %d, want 0", s.batch.cursor)
	}
}

func TestAppendTSPartialTailCarriesIntoSlotZero(t *testing.T) {
	s, sender := newTestSession()
	var data []byte
	// Fill every slot, then add three more packets into a fresh tail slot
	// before the batch is otherwise forced to flush.
	for i := 0; i < batchSlots*7; i++ {
		data = append(data, tsPacket(256)...)
	}
	if err := s.appendTS(data); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	sender.calls = nil

	var tail []byte
	for i := 0; i < 3; i++ {
		tail = append(tail, tsPacket(256)...)
	}
	if err := s.appendTS(tail); err != nil {
		t.Fatalf("appendTS tail: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("tail alone should not force a flush, got %d Send calls", len(sender.calls))
	}
	want := rtpHeaderLen + 3*tsPacketLen
	if s.batch.slots[0].n != want {
		t.Errorf("slot 0 length after tail = %d, want %d", s.batch.slots[0].n, want)
	}
}

func TestAppendTSPIDFilterDropsRejectedPackets(t *testing.T) {
	s, sender := newTestSession()
	s.pids = NewPIDFilter(false, []uint16{256})

	if err := s.appendTS(tsPacket(999)); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if s.batch.slots[0].n != rtpHeaderLen {
		t.Errorf("rejected packet was appended: slot 0 length = %d, want %d", s.batch.slots[0].n, rtpHeaderLen)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no flush, got %d", len(sender.calls))
	}

	if err := s.appendTS(tsPacket(256)); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if s.batch.slots[0].n != rtpHeaderLen+tsPacketLen {
		t.Errorf("accepted packet missing: slot 0 length = %d", s.batch.slots[0].n)
	}
}

// TestAppendTSLastPIDFastPathDoesNotSurviveUpdatePIDs guards against the
// fast path (pid == lastPID skips f.Accept) leaking across separate
// appendTS calls: lastPID must reset every call, matching the per-call
// local in the source this is grounded on, so a PID dropped from the
// filter between messages is dropped immediately rather than riding the
// fast path forever.
func TestAppendTSLastPIDFastPathDoesNotSurviveUpdatePIDs(t *testing.T) {
	s, _ := newTestSession()
	s.pids = NewPIDFilter(false, []uint16{0x100})

	if err := s.appendTS(tsPacket(0x100)); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	want := rtpHeaderLen + tsPacketLen
	if s.batch.slots[0].n != want {
		t.Fatalf("slot 0 length = %d, want %d", s.batch.slots[0].n, want)
	}

	s.pids = NewPIDFilter(false, nil) // UpdatePIDs(S, P) removing 0x100

	if err := s.appendTS(tsPacket(0x100)); err != nil {
		t.Fatalf("appendTS: %v", err)
	}
	if s.batch.slots[0].n != want {
		t.Errorf("PID 0x100 was admitted via stale lastPID fast path: slot 0 length = %d, want %d (unchanged)", s.batch.slots[0].n, want)
	}
}

func TestAppendTSRejectsNonAlignedPayload(t *testing.T) {
	s, _ := newTestSession()
	err := s.appendTS(make([]byte, tsPacketLen+1))
	if err != errNonAlignedPayload {
		t.Errorf("err = %v, want errNonAlignedPayload", err)
	}
}

func TestAppendTSDebugPanicsOnNonAlignedPayload(t *testing.T) {
	Debug = true
	defer func() { Debug = false }()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic in Debug mode")
		}
	}()

	s, _ := newTestSession()
	_ = s.appendTS(make([]byte, tsPacketLen+1))
}
