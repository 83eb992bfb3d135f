// Package metrics exports Prometheus instrumentation for stream pairings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pairingsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssestream_pairings_opened_total",
		Help: "Stream pairings opened, by channel tag",
	}, []string{"tag"})

	pairingsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ssestream_pairings_active",
		Help: "Stream pairings currently open, by channel tag",
	}, []string{"tag"})

	pairingsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssestream_pairings_closed_total",
		Help: "Stream pairings closed, by channel tag and reason",
	}, []string{"tag", "reason"})

	framesPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssestream_frames_pushed_total",
		Help: "Data frames written, by channel tag",
	}, []string{"tag"})

	bytesPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssestream_bytes_pushed_total",
		Help: "Bytes of data frames written, by channel tag",
	}, []string{"tag"})
)

// Observer records emitter lifecycle events. The zero value is ready to use.
type Observer struct{}

// Opened records a pairing becoming open.
func (Observer) Opened(tag string) {
	pairingsOpened.WithLabelValues(tag).Inc()
	pairingsActive.WithLabelValues(tag).Inc()
}

// Pushed records one data frame of size bytes.
func (Observer) Pushed(tag string, size int) {
	framesPushed.WithLabelValues(tag).Inc()
	bytesPushed.WithLabelValues(tag).Add(float64(size))
}

// Closed records a pairing closing, gracefully or because the peer went away.
func (Observer) Closed(tag string, aborted bool) {
	reason := "graceful"
	if aborted {
		reason = "aborted"
	}
	pairingsActive.WithLabelValues(tag).Dec()
	pairingsClosed.WithLabelValues(tag, reason).Inc()
}
