package satiprtp

import (
	"errors"
	"net"
	"testing"
	"time"
)

func loopbackPair(t *testing.T) (rtp, rtcp *net.UDPConn, peer *net.UDPAddr) {
	t.Helper()
	rtpListener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen RTP: %v", err)
	}
	t.Cleanup(func() { rtpListener.Close() })

	rtcpListener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen RTCP: %v", err)
	}
	t.Cleanup(func() { rtcpListener.Close() })

	client, err := net.DialUDP("udp", nil, rtpListener.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial RTP: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	rtcpClient, err := net.DialUDP("udp", nil, rtcpListener.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial RTCP: %v", err)
	}
	t.Cleanup(func() { rtcpClient.Close() })

	return client, rtcpClient, rtpListener.LocalAddr().(*net.UDPAddr)
}

func TestOpenRejectsIncompleteParams(t *testing.T) {
	c := New(Config{})
	defer func() {
		// no sessions were ever opened, so Shutdown should not panic
		c.Shutdown()
	}()

	_, err := c.Open(OpenParams{})
	if !errors.Is(err, ErrIncompleteOpen) {
		t.Errorf("err = %v, want ErrIncompleteOpen", err)
	}
}

func TestOpenUpdatePIDsCloseSession(t *testing.T) {
	c := New(Config{})
	rtpConn, rtcpConn, peer := loopbackPair(t)

	queue := NewQueue()
	sess, err := c.Open(OpenParams{
		Handle:     "s1",
		Queue:      queue,
		RTPPeer:    peer,
		RTPSocket:  rtpConn,
		RTCPSocket: rtcpConn,
		PIDs:       NewPIDFilter(false, []uint16{256}),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.RTCPPeer.Port != peer.Port+1 {
		t.Errorf("RTCPPeer port = %d, want %d", sess.RTCPPeer.Port, peer.Port+1)
	}

	if err := c.UpdatePIDs("s1", NewPIDFilter(false, []uint16{256, 257})); err != nil {
		t.Fatalf("UpdatePIDs: %v", err)
	}
	if got := sess.PIDs().PIDs; len(got) != 2 {
		t.Errorf("PIDs after update = %v, want 2 entries", got)
	}

	queue.Push(Message{Kind: MsgMPEGTS, Payload: tsPacket(256)})

	done := make(chan error, 1)
	go func() { done <- c.CloseSession("s1") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("CloseSession: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CloseSession did not complete: streamer goroutine failed to join")
	}

	c.Shutdown()
}

func TestUpdatePIDsUnknownHandle(t *testing.T) {
	c := New(Config{})
	defer c.Shutdown()

	err := c.UpdatePIDs("missing", PIDFilter{})
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestCloseSessionUnknownHandle(t *testing.T) {
	c := New(Config{})
	defer c.Shutdown()

	err := c.CloseSession("missing")
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestShutdownPanicsWithOpenSessions(t *testing.T) {
	c := New(Config{})
	rtpConn, rtcpConn, peer := loopbackPair(t)

	queue := NewQueue()
	_, err := c.Open(OpenParams{
		Handle:     "s1",
		Queue:      queue,
		RTPPeer:    peer,
		RTPSocket:  rtpConn,
		RTCPSocket: rtcpConn,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected Shutdown to panic with a session still open")
		}
		if err := c.CloseSession("s1"); err != nil {
			t.Errorf("CloseSession: %v", err)
		}
		c.Shutdown()
	}()
	c.Shutdown()
}
