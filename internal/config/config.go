// Package config loads the streaming core's process-wide tunables from
// the environment, with defaults matching satiprtp's own.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the tunables Core.New and the admin HTTP listener need.
type Config struct {
	// RTCPIntervalMS overrides the reporter's tick interval in
	// milliseconds; 0 keeps satiprtp's built-in ~150ms default.
	RTCPIntervalMS int

	// BatchCapacity is the configured number of 1328-byte slots per
	// session send batch. It is not applied to sessions: satiprtp's batch
	// is fixed at 128 slots at build time, and cmd/satiprtpd only logs a
	// value that differs from that.
	BatchCapacity int

	// MetricsAddr is the admin listener address for /metrics. Empty
	// disables the listener.
	MetricsAddr string
}

// Default returns the configuration satiprtp itself would use if left
// unconfigured.
func Default() Config {
	return Config{
		RTCPIntervalMS: 0,
		BatchCapacity:  128,
		MetricsAddr:    ":9100",
	}
}

// FromEnv starts from Default and overrides fields present in the
// environment:
//
//	SATIPRTP_RTCP_INTERVAL_MS  integer milliseconds
//	SATIPRTP_BATCH_CAPACITY    integer slot count, > 0
//	SATIPRTP_METRICS_ADDR      listen address, or "" to disable
func FromEnv() (Config, error) {
	c := Default()

	if v, ok := os.LookupEnv("SATIPRTP_RTCP_INTERVAL_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("config: SATIPRTP_RTCP_INTERVAL_MS: invalid value %q", v)
		}
		c.RTCPIntervalMS = n
	}

	if v, ok := os.LookupEnv("SATIPRTP_BATCH_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: SATIPRTP_BATCH_CAPACITY: invalid value %q", v)
		}
		c.BatchCapacity = n
	}

	if v, ok := os.LookupEnv("SATIPRTP_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}

	return c, nil
}
