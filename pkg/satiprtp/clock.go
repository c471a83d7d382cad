package satiprtp

import (
	"sync/atomic"
	"time"
)

// dispatchTick is a coarse, monotonically increasing wall-clock second
// counter, refreshed by a background ticker started from init(). The RTP
// timestamp is this tick plus the sequence number (see session.go); it is
// not a 90 kHz media clock, which is non-compliant with RFC 2250 but
// matches the behavior this module is grounded on.
var dispatchTick uint64

func init() {
	atomic.StoreUint64(&dispatchTick, uint64(time.Now().Unix()))
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for now := range t.C {
			atomic.StoreUint64(&dispatchTick, uint64(now.Unix()))
		}
	}()
}

func dispatchClock() uint32 {
	return uint32(atomic.LoadUint64(&dispatchTick))
}
