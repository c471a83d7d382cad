package satiprtp

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns an http.Handler serving this Core's Prometheus
// metrics, or nil if it was created with Config.MetricsEnabled=false.
func (c *Core) MetricsHandler() http.Handler {
	if c.metrics == nil {
		return nil
	}
	return promhttp.Handler()
}
