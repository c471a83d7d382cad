package satiprtp

import (
	"net"

	"github.com/satip/rtpcore/pkg/satiprtp/batchsend"
)

// newUDPBatchSender adapts batchsend.Sender to the batchSender interface
// a Session flushes through. conn is expected to already be connected to
// the session's RTP peer (see batchsend's Linux sendmmsg implementation).
func newUDPBatchSender(conn *net.UDPConn) batchSender {
	return batchsend.New(conn, batchsend.Config{
		Capacity:    batchSlots,
		MaxDatagram: slotCapacity,
	})
}
