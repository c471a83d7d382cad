//go:build linux

package batchsend

import (
	"net"

	"golang.org/x/sys/unix"
)

// linuxSender batches all iovecs of one Send call into a single
// sendmmsg(2) call, the real vectored/batched send syscall the RTP core
// is specified against. It requires conn to already be connected to its
// single peer (net.DialUDP) — sendmmsg is then called with no per-message
// destination, one syscall writing every datagram in the batch to the
// connected peer.
type linuxSender struct {
	raw *net.UDPConn
	cfg Config
}

func newPlatformSender(conn *net.UDPConn, cfg Config) Sender {
	return &linuxSender{raw: conn, cfg: cfg}
}

func (s *linuxSender) Send(iovecs [][]byte) (int, error) {
	if len(iovecs) == 0 {
		return 0, nil
	}
	if s.cfg.Capacity > 0 && len(iovecs) > s.cfg.Capacity {
		iovecs = iovecs[:s.cfg.Capacity]
	}

	sc, err := s.raw.SyscallConn()
	if err != nil {
		return 0, err
	}

	msgs := make([]unix.Mmsghdr, len(iovecs))
	iovs := make([]unix.Iovec, len(iovecs))
	for i, buf := range iovecs {
		if s.cfg.MaxDatagram > 0 && len(buf) > s.cfg.MaxDatagram {
			buf = buf[:s.cfg.MaxDatagram]
		}
		if len(buf) > 0 {
			iovs[i].Base = &buf[0]
			iovs[i].SetLen(len(buf))
		}
		msgs[i].Hdr.SetIovlen(1)
		msgs[i].Hdr.Iov = &iovs[i]
	}

	var sent int
	var sendErr error
	ctrlErr := sc.Write(func(fd uintptr) bool {
		sent, sendErr = unix.Sendmmsg(int(fd), msgs, 0)
		// Sendmmsg returns EAGAIN when the socket send buffer is full;
		// let the runtime poller retry once writability is signaled.
		return !errorIsEAGAIN(sendErr)
	})
	if ctrlErr != nil {
		return sent, ctrlErr
	}
	return sent, sendErr
}

func errorIsEAGAIN(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

func (s *linuxSender) Close() error { return nil }
