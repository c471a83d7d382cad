package satiprtp

import (
	"context"
	"log"
	"time"
)

// defaultRTCPInterval is the reporter's pass cadence absent an override.
const defaultRTCPInterval = 150 * time.Millisecond

// runRTCPReporter walks the registry once per interval and sends one
// application-defined RTCP report per streaming session. Each pass holds
// the registry lock for the whole walk, including the per-session sends;
// the lock is not held while waiting for the next tick. Send errors are
// logged and do not abort the pass (spec §4.3 failure semantics).
func (c *Core) runRTCPReporter(ctx context.Context, interval time.Duration) {
	defer close(c.reporterDone)

	if interval <= 0 {
		interval = defaultRTCPInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	var msg [rtcpPayload]byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		c.reportPass(msg[:])
	}
}

func (c *Core) reportPass(scratch []byte) {
	c.registry.Range(func(s *Session) bool {
		if s.queue() == nil {
			return true // closing: only streaming sessions get RTCP
		}

		sig := s.SignalStatus()
		lock := 0
		if sig.Signal > 0 {
			lock = 1
		}
		level := scaleLevel(sig.Signal, sig.SignalScale)
		// quality is derived from the signal reading too; SNRScale only
		// selects which branch to scale it through (relative vs decibel).
		quality := scaleQuality(sig.Signal, sig.SNRScale)

		pids := s.PIDs().PIDs
		n, ok := buildRTCPReport(scratch, s.Mux, s.Source, s.Frontend, level, lock, quality, pids)
		if !ok {
			return true
		}

		if _, err := s.RTCPSocket.WriteToUDP(scratch[:n], s.RTCPPeer); err != nil {
			log.Printf("satiprtp: RTCP send to %s: %v", s.RTCPPeer, err)
			if c.metrics != nil {
				c.metrics.rtcpSendErrors.Inc()
			}
		} else if c.metrics != nil {
			c.metrics.rtcpSent.Inc()
		}
		return true
	})
}
