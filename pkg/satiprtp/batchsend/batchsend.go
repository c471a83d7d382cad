// Package batchsend implements the vectored UDP batch sender the core
// streamer flushes full RTP send batches through: init with a capacity
// and a maximum datagram size, then send N buffers as N independent
// datagrams in one syscall where the platform supports it.
package batchsend

import "net"

// Sender sends a batch of already-framed datagrams to a UDP connection's
// default peer (a connected *net.UDPConn) in as few syscalls as the
// platform allows, preserving packet boundaries. iovecs[i] becomes
// exactly one outbound datagram; Send returns the number of datagrams
// successfully sent before the first error, if any.
type Sender interface {
	Send(iovecs [][]byte) (int, error)
	Close() error
}

// Config bounds a Sender's batch shape. Capacity and MaxDatagram mirror
// the fixed-capacity array of scatter-gather buffers a session's batch
// is built from (see pkg/satiprtp); they exist so a Sender can size any
// platform-specific scratch buffers once, up front, rather than on every
// send.
type Config struct {
	Capacity    int // maximum datagrams per Send call
	MaxDatagram int // maximum bytes per datagram
}

// New constructs the platform-appropriate Sender for conn. conn must
// already be connected (net.DialUDP) to the single peer every datagram
// in a batch is addressed to; a session has exactly one RTP peer for its
// lifetime.
func New(conn *net.UDPConn, cfg Config) Sender {
	return newPlatformSender(conn, cfg)
}
