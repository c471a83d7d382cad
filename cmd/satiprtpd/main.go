// Command satiprtpd demonstrates wiring satiprtp.Core end to end: it
// opens one session against a synthetic MPEG-TS producer, serves
// Prometheus metrics, and tears the session down cleanly on signal.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satip/rtpcore/internal/config"
	"github.com/satip/rtpcore/pkg/satiprtp"
)

func main() {
	rtpAddr := flag.String("rtp", "127.0.0.1:9200", "destination RTP address (RTCP follows on port+1)")
	pidList := flag.String("pids", "256,257,258", "comma-separated PIDs to accept, or \"all\"")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("satiprtpd: %v", err)
	}

	core := satiprtp.New(satiprtp.Config{
		RTCPInterval:   cfg.RTCPIntervalMS,
		MetricsEnabled: cfg.MetricsAddr != "",
	})

	if cfg.BatchCapacity != 128 {
		log.Printf("satiprtpd: SATIPRTP_BATCH_CAPACITY=%d ignored: batch capacity is fixed at build time", cfg.BatchCapacity)
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", core.MetricsHandler())
		go func() {
			log.Printf("satiprtpd: metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("satiprtpd: metrics server: %v", err)
			}
		}()
	}

	peer, err := net.ResolveUDPAddr("udp", *rtpAddr)
	if err != nil {
		log.Fatalf("satiprtpd: resolve %s: %v", *rtpAddr, err)
	}
	rtpSock, err := net.DialUDP("udp", nil, peer)
	if err != nil {
		log.Fatalf("satiprtpd: dial RTP socket: %v", err)
	}
	defer rtpSock.Close()

	// The RTCP reporter addresses each report to port+1 with WriteToUDP,
	// so this socket is left unconnected.
	rtcpSock, err := net.ListenUDP("udp", nil)
	if err != nil {
		log.Fatalf("satiprtpd: open RTCP socket: %v", err)
	}
	defer rtcpSock.Close()

	all, pids := parsePIDs(*pidList)
	filter := satiprtp.NewPIDFilter(all, pids)

	queue := satiprtp.NewQueue()
	handle := "demo-session"
	sess, err := core.Open(satiprtp.OpenParams{
		Handle:     handle,
		Queue:      queue,
		RTPPeer:    peer,
		RTPSocket:  rtpSock,
		RTCPSocket: rtcpSock,
		Frontend:   0,
		Source:     1,
		Mux: satiprtp.MuxConfig{
			DeliverySystem: satiprtp.SysDVBS,
			FrequencyHz:    11495000000,
			Polarization:   satiprtp.PolHorizontal,
			SymbolRateHz:   22000000,
			FECInner:       satiprtp.FEC3_4,
		},
		PIDs:     filter,
		BytesOut: &satiprtp.Counter{},
	})
	if err != nil {
		log.Fatalf("satiprtpd: open session: %v", err)
	}
	log.Printf("satiprtpd: streaming to %s", sess.RTPPeer)

	stop := make(chan struct{})
	go produceTS(queue, stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stop)
	if err := core.CloseSession(handle); err != nil {
		log.Printf("satiprtpd: close session: %v", err)
	}
	core.Shutdown()
	fmt.Println("satiprtpd: shut down")
}

// produceTS feeds synthetic 188-byte TS packets at a steady rate until
// stop is closed, standing in for a real tuner's demux output.
func produceTS(q *satiprtp.Queue, stop <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	pids := []uint16{256, 257, 258}
	var counter byte

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pid := pids[rand.Intn(len(pids))]
			pkt := make([]byte, 188)
			pkt[0] = 0x47
			pkt[1] = byte(pid >> 8 & 0x1f)
			pkt[2] = byte(pid)
			pkt[3] = 0x10 | (counter & 0x0f)
			counter++
			q.Push(satiprtp.Message{Kind: satiprtp.MsgMPEGTS, Payload: pkt})
		}
	}
}

func parsePIDs(s string) (all bool, pids []uint16) {
	if s == "all" || s == "" {
		return true, nil
	}
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				var v uint16
				for _, c := range s[start:i] {
					if c < '0' || c > '9' {
						continue
					}
					v = v*10 + uint16(c-'0')
				}
				pids = append(pids, v)
			}
			start = i + 1
		}
	}
	return false, pids
}
